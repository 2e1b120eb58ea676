package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFrames_Reassembly(t *testing.T) {
	// Given: a stream of delimited payloads
	payloads := [][]byte{
		[]byte(`{"message_type":5,"message_id":"a"}`),
		[]byte(`{"message_type":6,"message_id":"b","pos":4}`),
		[]byte(`{"message_type":2,"message_id":"c","result":0,"text":"OK"}`),
	}
	stream := bytes.Join(payloads, []byte{Delimiter})
	stream = append(stream, Delimiter)

	// When: the stream arrives in chunks of every size, including splits
	// in the middle of a payload
	for chunkSize := 1; chunkSize <= len(stream); chunkSize++ {
		var carry []byte
		var got [][]byte

		for start := 0; start < len(stream); start += chunkSize {
			end := start + chunkSize
			if end > len(stream) {
				end = len(stream)
			}

			var frames [][]byte
			frames, carry = ReadFrames(carry, stream[start:end])
			got = append(got, frames...)
		}

		// Then: the original payload sequence is reassembled exactly,
		// with no loss, duplication or leftover carry
		require.Equal(t, payloads, got, "chunk size %d", chunkSize)
		require.Empty(t, carry, "chunk size %d", chunkSize)
	}
}

func TestReadFrames_Carry(t *testing.T) {
	t.Run("Trailing fragment becomes carry", func(t *testing.T) {
		// When: a read ends mid-payload
		frames, carry := ReadFrames(nil, []byte("{\"message_type\":5,\"message_id\":\"a\"}\n{\"message_ty"))

		// Then: the complete frame is returned and the fragment carried over
		require.Len(t, frames, 1)
		assert.Equal(t, []byte(`{"message_ty`), carry)
	})

	t.Run("Carry is prepended to the next read", func(t *testing.T) {
		// Given: a carry from a previous partial read
		carry := []byte(`{"message_type":5,`)

		// When: the rest of the payload arrives
		frames, newCarry := ReadFrames(carry, []byte("\"message_id\":\"a\"}\n"))

		// Then: the split payload comes out whole
		require.Len(t, frames, 1)
		assert.Equal(t, []byte(`{"message_type":5,"message_id":"a"}`), frames[0])
		assert.Nil(t, newCarry)
	})

	t.Run("Empty read yields nothing", func(t *testing.T) {
		frames, carry := ReadFrames(nil, nil)

		assert.Empty(t, frames)
		assert.Nil(t, carry)
	})

	t.Run("Consecutive delimiters are skipped", func(t *testing.T) {
		frames, carry := ReadFrames(nil, []byte("\n\n{\"message_id\":\"a\"}\n\n"))

		require.Len(t, frames, 1)
		assert.Nil(t, carry)
	})
}
