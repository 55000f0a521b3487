// ABOUTME: Encoder interface definition
// ABOUTME: Common interface for sample block encoders
package encode

import "github.com/Resonate-Protocol/resonate-capture/pkg/audio"

// Encoder serializes typed sample blocks to bytes
type Encoder interface {
	// Encode converts a block to encoded audio data
	Encode(block audio.Block) ([]byte, error)

	// Append encodes block onto dst and returns the extended slice
	Append(dst []byte, block audio.Block) ([]byte, error)

	// Close releases encoder resources
	Close() error
}
