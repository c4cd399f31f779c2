package client

import (
	"context"
	"net/http"

	"github.com/pipenetwork/libpipe-go/auth"
)

// Balance is a point-in-time snapshot of an account's service-side funds.
// It is never cached; query again for fresh values.
type Balance struct {
	SOL       float64
	PIPE      float64
	PublicKey string
}

// GetBalance queries the account's deposit wallet. The native balance and
// public key come from the wallet check; the PIPE amount from a secondary
// token query whose failure degrades to zero rather than failing the call.
func (c *Client) GetBalance(ctx context.Context, sess *auth.Session) (*Balance, error) {
	headers, err := sess.Headers(ctx)
	if err != nil {
		return nil, err
	}
	headers.Set("Content-Type", "application/json")

	req, err := c.newRequest(ctx, http.MethodPost, "/checkWallet", nil, headers, nil)
	if err != nil {
		return nil, err
	}
	var wallet struct {
		PublicKey  string  `json:"public_key"`
		BalanceSOL float64 `json:"balance_sol"`
	}
	if err := c.doJSON(req, &wallet, nil); err != nil {
		return nil, err
	}

	balance := &Balance{SOL: wallet.BalanceSOL, PublicKey: wallet.PublicKey}

	// Secondary currency, best effort.
	body, err := jsonBody(map[string]string{"token_mint": c.tokenMint})
	if err != nil {
		return nil, err
	}
	req, err = c.newRequest(ctx, http.MethodPost, "/checkCustomToken", nil, headers, body)
	if err != nil {
		return nil, err
	}
	var token struct {
		UIAmount float64 `json:"ui_amount"`
	}
	if err := c.doJSON(req, &token, nil); err == nil {
		balance.PIPE = token.UIAmount
	}

	return balance, nil
}

// ExchangeSolForTokens swaps amountSOL from the deposit wallet into PIPE
// tokens and returns the minted amount.
func (c *Client) ExchangeSolForTokens(ctx context.Context, sess *auth.Session, amountSOL float64) (float64, error) {
	if amountSOL <= 0 {
		return 0, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}

	headers, err := sess.Headers(ctx)
	if err != nil {
		return 0, err
	}
	headers.Set("Content-Type", "application/json")

	body, err := jsonBody(map[string]float64{"amount_sol": amountSOL})
	if err != nil {
		return 0, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/exchangeSolForTokens", nil, headers, body)
	if err != nil {
		return 0, err
	}
	var out struct {
		TokensMinted float64 `json:"tokens_minted"`
	}
	err = c.doJSON(req, &out, func(status int) ErrorCode {
		if status == http.StatusPaymentRequired {
			return CodeInsufficientSOL
		}
		return ""
	})
	if err != nil {
		return 0, err
	}
	return out.TokensMinted, nil
}
