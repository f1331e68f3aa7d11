package models

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func newTestRequest(t *testing.T, status RequestStatus) RandomnessRequest {
	t.Helper()
	seed := bytes.Repeat([]byte{0xab}, 32)
	return RandomnessRequest{
		Subscription:     solana.NewWallet().PublicKey(),
		Seed:             seed,
		Requester:        solana.NewWallet().PublicKey(),
		CallbackData:     []byte("callback"),
		RequestSlot:      1234,
		Status:           status,
		NumWords:         2,
		CallbackGasLimit: 200000,
		PoolID:           1,
		RequestIndex:     7,
		RequestID:        [32]byte{1, 2, 3},
	}
}

func TestDecodeRequestSkipsForeignAccounts(t *testing.T) {
	addr := solana.NewWallet().PublicKey()
	cases := map[string][]byte{
		"empty":        nil,
		"short":        []byte("REQ"),
		"seven bytes":  []byte("REQUEST"),
		"wrong tag":    []byte("RESULT\x00\x00some more payload"),
		"tag no zero":  []byte("REQUESTS"),
		"subscription": append([]byte("SUBSCRIP"), make([]byte, 200)...),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok, err := DecodeRequest(RawAccount{Address: addr, Data: data})
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestDecodeRequestTruncatedPayload(t *testing.T) {
	addr := solana.NewWallet().PublicKey()
	data := append(RequestDiscriminator[:], 1, 2, 3, 4)

	_, ok, err := DecodeRequest(RawAccount{Address: addr, Data: data})
	require.False(t, ok)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, addr, decodeErr.Address)
}

func TestDecodeRequestRoundTrip(t *testing.T) {
	for _, status := range []RequestStatus{RequestPending, RequestFulfilled, RequestCancelled, RequestExpired} {
		t.Run(status.String(), func(t *testing.T) {
			want := newTestRequest(t, status)
			data, err := EncodeRequest(want)
			require.NoError(t, err)

			addr := solana.NewWallet().PublicKey()
			got, ok, err := DecodeRequest(RawAccount{Address: addr, Data: data})
			require.NoError(t, err)
			require.True(t, ok)

			want.Address = addr
			require.Equal(t, want, got)
			require.Equal(t, status == RequestPending, got.IsPending())
		})
	}
}

func TestDecodeRequestIgnoresTrailingSpace(t *testing.T) {
	data, err := EncodeRequest(newTestRequest(t, RequestPending))
	require.NoError(t, err)
	data = append(data, make([]byte, 64)...)

	got, ok, err := DecodeRequest(RawAccount{Data: data})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, RequestPending, got.Status)
}

func TestDecodeRequestUnknownStatus(t *testing.T) {
	data, err := EncodeRequest(newTestRequest(t, RequestPending))
	require.NoError(t, err)

	// status byte sits after subscription, seed, requester, callback data and slot
	statusOffset := len(RequestDiscriminator) + 32 + 32 + 32 + 4 + len("callback") + 8
	require.Equal(t, byte(RequestPending), data[statusOffset])
	data[statusOffset] = 9

	_, ok, err := DecodeRequest(RawAccount{Data: data})
	require.False(t, ok)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestEncodeRequestRejectsBadSeed(t *testing.T) {
	req := newTestRequest(t, RequestPending)
	req.Seed = []byte("short")
	_, err := EncodeRequest(req)
	require.Error(t, err)
}

func TestFulfillRandomnessWireFormat(t *testing.T) {
	ix := FulfillRandomness{Proof: []byte{0x01, 0x02, 0x03}, PublicKey: []byte{0xaa, 0xbb}}
	data, err := ix.MarshalBorsh()
	require.NoError(t, err)

	want := []byte{
		FulfillRandomnessVariant,
		3, 0, 0, 0, 0x01, 0x02, 0x03,
		2, 0, 0, 0, 0xaa, 0xbb,
	}
	require.Equal(t, want, data)

	decoded, err := UnmarshalFulfillRandomness(data)
	require.NoError(t, err)
	require.Equal(t, ix, decoded)

	data[0] = 0
	_, err = UnmarshalFulfillRandomness(data)
	require.Error(t, err)
}
