// Package config holds the instrument configuration.
//
// The firmware build runs with [Default]. The desktop simulator can
// override any field from a YAML file:
//
//	audio:
//	  sample_rate: 44100
//	  volume: 70
//	  output: headphone   # speaker, headphone, both, auto
//	  frames: 4096        # even
//	  channels: 2         # 1 or 2
//	synth:
//	  capacity: 2048      # power of two, longer than the longest delay
//	  peak: 32760
//	  seed: 8675309
//	midi:
//	  rx_buffer: 64       # multiple of 4
//	log:
//	  level: warn         # debug, info, warn, error
//	  format: text        # text, json
//	loop:
//	  poll_interval: 0s
package config
