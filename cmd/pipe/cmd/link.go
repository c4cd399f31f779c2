package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Manage public links",
}

var linkCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a public link for a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runLinkCreate,
}

var linkRmCmd = &cobra.Command{
	Use:   "rm <hash>",
	Short: "Revoke a public link",
	Args:  cobra.ExactArgs(1),
	RunE:  runLinkRm,
}

var linkGetCmd = &cobra.Command{
	Use:   "get <hash>",
	Short: "Download a publicly linked file (no login required)",
	Args:  cobra.ExactArgs(1),
	RunE:  runLinkGet,
}

func init() {
	linkGetCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output path (default: the link hash)")
	linkCmd.AddCommand(linkCreateCmd, linkRmCmd, linkGetCmd)
	rootCmd.AddCommand(linkCmd)
}

func runLinkCreate(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	hash, err := app.client.CreatePublicLink(context.Background(), app.sess, args[0])
	app.persistSession()
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func runLinkRm(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	err = app.client.DeletePublicLink(context.Background(), app.sess, args[0])
	app.persistSession()
	return err
}

func runLinkGet(cmd *cobra.Command, args []string) error {
	// Anonymous retrieval: no stored account needed.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	hash := args[0]
	data, err := c.PublicDownload(context.Background(), hash)
	if err != nil {
		return err
	}

	out := flagOutput
	if out == "" {
		out = hash
	}
	if err := os.WriteFile(out, data, 0600); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Wrote %d bytes to %s.\n", len(data), out)
	return nil
}
