package generator

import (
	"math/rand"
	"sync"
	"time"
)

// Tone is a style directive mixed into every prompt so consecutive messages
// for the same client can differ.
type Tone string

const (
	ToneFriendly Tone = "friendly"
	ToneZen      Tone = "zen"
	ToneConcise  Tone = "concise"
	ToneElegant  Tone = "elegant"
)

var Tones = []Tone{ToneFriendly, ToneZen, ToneConcise, ToneElegant}

// Directive is the instruction text the model sees for the tone.
func (t Tone) Directive() string {
	switch t {
	case ToneFriendly:
		return "Like a close friend, lots of energy! Use emojis ✨💖"
	case ToneZen:
		return "Relaxed and calm. Plant emojis 🌿🌸"
	case ToneConcise:
		return "Short, concrete and with a smile 😎"
	case ToneElegant:
		return "Exclusive and elegant 💎"
	default:
		return "Warm and kind."
	}
}

func (t Tone) Valid() bool {
	for _, v := range Tones {
		if v == t {
			return true
		}
	}
	return false
}

type ToneSelector interface {
	Select() Tone
}

// RandomTones picks uniformly from Tones.
type RandomTones struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRandomTones(seed int64) *RandomTones {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomTones{r: rand.New(rand.NewSource(seed))}
}

func (s *RandomTones) Select() Tone {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Tones[s.r.Intn(len(Tones))]
}

// FixedTone always returns itself.
type FixedTone Tone

func (f FixedTone) Select() Tone { return Tone(f) }
