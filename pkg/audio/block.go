// ABOUTME: Typed sample blocks delivered by capture callbacks
// ABOUTME: One variant per supported sample encoding, no byte reinterpretation
package audio

// Block is one callback's worth of interleaved samples.
//
// The set of implementations is closed: U8Samples, S16Samples, S24Samples,
// S32Samples and F32Samples.
type Block interface {
	// Len returns the number of samples (frames * channels)
	Len() int

	// Int32 returns sample i left-justified to the full int32 range
	Int32(i int) int32

	// Float32 returns sample i scaled to [-1, 1)
	Float32(i int) float32

	// Kind and BitDepth describe the native encoding of the block
	Kind() SampleKind
	BitDepth() int

	block()
}

// U8Samples holds unsigned 8-bit samples (128 is silence)
type U8Samples []uint8

func (s U8Samples) Len() int { return len(s) }
func (s U8Samples) Int32(i int) int32 { return (int32(s[i]) - 128) << 24 }
func (s U8Samples) Float32(i int) float32 { return PCMToFloat(int32(s[i])-128, 8) }
func (s U8Samples) Kind() SampleKind { return KindInt }
func (s U8Samples) BitDepth() int { return 8 }
func (U8Samples) block() {}

// S16Samples holds signed 16-bit samples
type S16Samples []int16

func (s S16Samples) Len() int { return len(s) }
func (s S16Samples) Int32(i int) int32 { return int32(s[i]) << 16 }
func (s S16Samples) Float32(i int) float32 { return PCMToFloat(int32(s[i]), 16) }
func (s S16Samples) Kind() SampleKind { return KindInt }
func (s S16Samples) BitDepth() int { return 16 }
func (S16Samples) block() {}

// S24Samples holds signed 24-bit samples in the low bits of an int32
type S24Samples []int32

func (s S24Samples) Len() int { return len(s) }
func (s S24Samples) Int32(i int) int32 { return s[i] << 8 }
func (s S24Samples) Float32(i int) float32 { return PCMToFloat(s[i], 24) }
func (s S24Samples) Kind() SampleKind { return KindInt }
func (s S24Samples) BitDepth() int { return 24 }
func (S24Samples) block() {}

// S32Samples holds signed 32-bit samples
type S32Samples []int32

func (s S32Samples) Len() int { return len(s) }
func (s S32Samples) Int32(i int) int32 { return s[i] }
func (s S32Samples) Float32(i int) float32 { return PCMToFloat(s[i], 32) }
func (s S32Samples) Kind() SampleKind { return KindInt }
func (s S32Samples) BitDepth() int { return 32 }
func (S32Samples) block() {}

// F32Samples holds IEEE float samples nominally in [-1, 1]
type F32Samples []float32

func (s F32Samples) Len() int { return len(s) }
func (s F32Samples) Int32(i int) int32 { return FloatToPCM(s[i], 32) }
func (s F32Samples) Float32(i int) float32 { return s[i] }
func (s F32Samples) Kind() SampleKind { return KindFloat }
func (s F32Samples) BitDepth() int { return 32 }
func (F32Samples) block() {}

