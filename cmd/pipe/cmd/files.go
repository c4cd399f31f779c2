package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var flagOutput string

var uploadCmd = &cobra.Command{
	Use:   "upload <path> [name]",
	Short: "Upload a file",
	Long:  "Upload a local file, optionally under a different name. The name, not the printed content identifier, is what retrieves the file later.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runUpload,
}

var downloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download a file by its upload-time name",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

var rmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a remote file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List locally known uploads",
	Long:  "List the local manifest of known uploads, most recent first. The service has no listing API; files uploaded elsewhere do not appear.",
	Args:  cobra.NoArgs,
	RunE:  runLs,
}

func init() {
	downloadCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output path (default: the file name)")
	rootCmd.AddCommand(uploadCmd, downloadCmd, rmCmd, lsCmd)
}

func runUpload(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	path := args[0]
	name := filepath.Base(path)
	if len(args) > 1 {
		name = args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	rec, err := app.client.UploadFile(context.Background(), app.sess, data, name, func(sent, total int64) {
		fmt.Fprintf(os.Stderr, "\r%d/%d bytes", sent, total)
	})
	fmt.Fprintln(os.Stderr)
	app.persistSession()
	if err != nil {
		return err
	}

	if err := app.manifest().Upsert(*rec); err != nil {
		return err
	}

	fmt.Printf("%s\t%s\n", rec.ID, rec.FileName)
	return nil
}

func runDownload(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	name := args[0]
	data, err := app.client.DownloadFile(context.Background(), app.sess, name)
	app.persistSession()
	if err != nil {
		return err
	}

	out := flagOutput
	if out == "" {
		out = name
	}
	if err := os.WriteFile(out, data, 0600); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s.\n", len(data), out)
	return nil
}

func runRm(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	name := args[0]
	err = app.client.DeleteFile(context.Background(), app.sess, name)
	app.persistSession()
	if err != nil {
		return err
	}

	// Drop the matching manifest entry, if we know one.
	manifest := app.manifest()
	records, lerr := manifest.List()
	if lerr == nil {
		for _, rec := range records {
			if rec.FileName == name {
				if rerr := manifest.Remove(rec.ID); rerr != nil {
					return rerr
				}
				break
			}
		}
	}
	return nil
}

func runLs(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	manifest := app.manifest()
	records, err := manifest.List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("(no entries)")
		return nil
	}
	if len(records) >= manifest.Capacity() {
		fmt.Fprintln(os.Stderr, "Note: the manifest is full; the oldest entries have been evicted.")
	}
	for _, rec := range records {
		fmt.Printf("%s\t%10d\t%s\t%s\n",
			shortID(rec.ID), rec.Size, rec.UploadedAt.Local().Format("2006-01-02 15:04"), rec.FileName)
	}
	return nil
}

// shortID abbreviates a content identifier for display. Manifest entries
// written by other tools may carry identifiers of any length.
func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}
