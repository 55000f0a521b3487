// ABOUTME: Decoder interface definition
// ABOUTME: Common interface for raw byte to sample block decoders
package decode

import "github.com/Resonate-Protocol/resonate-capture/pkg/audio"

// Decoder turns encoded audio data into typed sample blocks
type Decoder interface {
	// Decode converts encoded audio data to a sample block
	Decode(data []byte) (audio.Block, error)

	// Close releases decoder resources
	Close() error
}
