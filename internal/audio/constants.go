package audio

const (
	// Channels is the number of audio channels (mono)
	Channels = 1
	// MaxAmplitude16 is the largest positive value of a signed 16-bit sample
	MaxAmplitude16 = 32767
	// MaxAmplitude24 is the largest positive value of a signed 24-bit sample
	MaxAmplitude24 = 8388607
)

// SampleRates maps the frequency option labels to sample rates in Hz
var SampleRates = map[string]int{
	"44.1": 44100,
	"48":   48000,
	"96":   96000,
}
