package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pavuchara/nextgen/internal/storage"
)

// imageTypes lists the content types accepted for avatars and thumbnails.
var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Manage stored images and the cleanup queue",
}

var assetsUploadCmd = &cobra.Command{
	Use:   "upload <avatars|posts> <owner-slug> <file>",
	Short: "Upload an image and print the path to store on the profile or post",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, owner, file := args[0], args[1], args[2]
		if kind != "avatars" && kind != "posts" {
			return fmt.Errorf("unknown asset kind %q", kind)
		}

		a, err := open(needs{storage: true})
		if err != nil {
			return err
		}
		defer a.close()
		if a.storage == nil {
			return errors.New("s3 storage is not configured")
		}

		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		// Detect the content type by sniffing the first 512 bytes.
		sniff := make([]byte, 512)
		n, err := f.Read(sniff)
		if err != nil && err != io.EOF {
			return err
		}
		contentType := http.DetectContentType(sniff[:n])
		if !imageTypes[contentType] {
			return fmt.Errorf("%s is %s, not a supported image", file, contentType)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}

		key := storage.AssetPath(kind, owner, filepath.Base(file))
		if err := a.storage.Put(cmd.Context(), key, contentType, f, info.Size()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		fmt.Fprintln(cmd.OutOrStdout(), a.storage.URL(key))
		return nil
	},
}

var assetsPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show how many assets wait for deletion",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(needs{valkey: true})
		if err != nil {
			return err
		}
		defer a.close()

		queued, failed, err := a.assets.Pending(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued: %d\nfailed: %d\n", queued, failed)
		return nil
	},
}

var assetsRequeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Move assets whose deletion failed back onto the cleanup queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(needs{valkey: true})
		if err != nil {
			return err
		}
		defer a.close()

		moved, err := a.assets.Requeue(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "requeued: %d\n", moved)
		return nil
	},
}

func init() {
	assetsCmd.AddCommand(assetsUploadCmd, assetsPendingCmd, assetsRequeueCmd)
}
