package ton

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

var (
	ErrInvalidAddress = errors.New("invalid TON address")
	ErrTestnetAddress = errors.New("testnet-only TON address")
)

// Network selects which address flavour payouts are accepted for.
type Network int

const (
	Mainnet Network = iota
	Testnet
)

func NetworkFor(testnet bool) Network {
	if testnet {
		return Testnet
	}
	return Mainnet
}

// ParseAddress accepts both the user-friendly base64 form and the raw
// "workchain:hex" form.
func ParseAddress(s string, net Network) (*address.Address, error) {
	s = strings.TrimSpace(s)

	var (
		addr *address.Address
		err  error
	)
	if strings.Contains(s, ":") {
		addr, err = address.ParseRawAddr(s)
		if err == nil {
			// Raw addresses carry no flags; wallets expect non-bounceable payouts.
			addr.SetBounce(false)
			addr.SetTestnetOnly(net == Testnet)
		}
	} else {
		addr, err = address.ParseAddr(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if addr.IsTestnetOnly() && net == Mainnet {
		return nil, ErrTestnetAddress
	}
	return addr, nil
}

// NormalizeAddress returns the canonical user-friendly form stored on a
// withdrawal.
func NormalizeAddress(s string, net Network) (string, error) {
	addr, err := ParseAddress(s, net)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

// CommentPayload builds the base64 BOC of a text comment message body
// (op 0 followed by the snake-encoded text), as wallets attach to transfers.
func CommentPayload(comment string) (string, error) {
	b := cell.BeginCell().MustStoreUInt(0, 32)
	if err := b.StoreStringSnake(comment); err != nil {
		return "", fmt.Errorf("failed to encode comment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b.EndCell().ToBOC()), nil
}

// ReadComment decodes a payload produced by CommentPayload.
func ReadComment(payload string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("invalid BOC encoding: %w", err)
	}
	c, err := cell.FromBOC(raw)
	if err != nil {
		return "", fmt.Errorf("invalid BOC: %w", err)
	}
	slice := c.BeginParse()
	op, err := slice.LoadUInt(32)
	if err != nil {
		return "", err
	}
	if op != 0 {
		return "", fmt.Errorf("not a text comment: op %d", op)
	}
	text, err := slice.LoadStringSnake()
	if err != nil {
		return "", err
	}
	return text, nil
}

// TransferLink is a ton:// deep link that opens a wallet with the
// destination and comment filled in.
func TransferLink(dest, comment string) string {
	link := "ton://transfer/" + dest
	if comment != "" {
		link += "?text=" + url.QueryEscape(comment)
	}
	return link
}
