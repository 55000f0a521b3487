// ABOUTME: Audio input package for capturing audio
// ABOUTME: Provides the Host/Stream boundary, a malgo backend and a tone generator
// Package input provides audio capture interfaces.
//
// A Host enumerates devices, reports their supported configs and opens
// streams. Streams deliver typed sample blocks to a callback on a backend
// goroutine until they are stopped.
//
// Backends:
//   - Malgo records from system devices through miniaudio
//   - ToneHost synthesizes a sine tone and needs no hardware
//
// Example:
//
//	host, err := input.NewMalgo()
//	dev, err := host.DefaultInput()
//	configs, err := host.SupportedConfigs(dev)
//	format, err := input.Choose(configs, want)
//	stream, err := host.OpenInput(dev, format, onBlock, onError)
//	err = stream.Start()
package input
