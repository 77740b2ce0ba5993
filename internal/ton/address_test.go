package ton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const foundationWallet = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("  "+foundationWallet+" ", Mainnet)
	require.NoError(t, err)
	assert.Equal(t, foundationWallet, got)
}

func TestNormalizeAddressRawForm(t *testing.T) {
	addr, err := ParseAddress(foundationWallet, Mainnet)
	require.NoError(t, err)

	raw := "0:83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	got, err := ParseAddress(raw, Mainnet)
	require.NoError(t, err)
	assert.Equal(t, addr.Data(), got.Data())
	assert.False(t, got.IsBounceable())
}

func TestNormalizeAddressRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "hello", "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2M"} {
		_, err := NormalizeAddress(in, Mainnet)
		assert.ErrorIs(t, err, ErrInvalidAddress, in)
	}
}

func TestCommentPayloadRoundTrip(t *testing.T) {
	payload, err := CommentPayload("withdrawal 42")
	require.NoError(t, err)

	text, err := ReadComment(payload)
	require.NoError(t, err)
	assert.Equal(t, "withdrawal 42", text)
}

func TestTransferLink(t *testing.T) {
	assert.Equal(t, "ton://transfer/"+foundationWallet, TransferLink(foundationWallet, ""))
	assert.Equal(t, "ton://transfer/"+foundationWallet+"?text=pay+out", TransferLink(foundationWallet, "pay out"))
}
