package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the account's SOL and PIPE balances",
	Args:  cobra.NoArgs,
	RunE:  runBalance,
}

var exchangeCmd = &cobra.Command{
	Use:   "exchange <amount-sol>",
	Short: "Exchange SOL for PIPE tokens",
	Args:  cobra.ExactArgs(1),
	RunE:  runExchange,
}

func init() {
	rootCmd.AddCommand(balanceCmd, exchangeCmd)
}

func runBalance(cmd *cobra.Command, args []string) (err error) {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	balance, err := app.client.GetBalance(context.Background(), app.sess)
	app.persistSession()
	if err != nil {
		return err
	}

	fmt.Printf("Deposit address: %s\n", balance.PublicKey)
	fmt.Printf("SOL:  %f\n", balance.SOL)
	fmt.Printf("PIPE: %f\n", balance.PIPE)
	return nil
}

func runExchange(cmd *cobra.Command, args []string) (err error) {
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", args[0], err)
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	minted, err := app.client.ExchangeSolForTokens(context.Background(), app.sess, amount)
	app.persistSession()
	if err != nil {
		return err
	}

	fmt.Printf("Minted %f PIPE.\n", minted)
	return nil
}
