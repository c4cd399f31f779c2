package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var flagPassword string

var registerCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Create a new account",
	Long:  "Create a new account on the service and store its credentials locally.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in to an existing account",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored credentials",
	RunE:  runLogout,
}

func init() {
	registerCmd.Flags().StringVar(&flagPassword, "password", "", "password (prompted if omitted)")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "password (prompted if omitted)")
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd)
}

// readPassword returns the --password flag value or prompts on the terminal.
func readPassword() (string, error) {
	if flagPassword != "" {
		return flagPassword, nil
	}
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func runRegister(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	password, err := readPassword()
	if err != nil {
		return err
	}

	account, err := c.CreateAccount(context.Background(), args[0], password)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := store.Credentials("").Save(*account); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Account %s created.\n", account.Username)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	c, err := newClient(cfg)
	if err != nil {
		return err
	}
	password, err := readPassword()
	if err != nil {
		return err
	}

	account, err := c.Login(context.Background(), args[0], password)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := store.Credentials("").Save(*account); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Logged in as %s.\n", account.Username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return store.Credentials("").Clear()
}
