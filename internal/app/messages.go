package app

import (
	"math/rand"

	"github.com/coreman2200/funtimes-glyphstrip/model"
)

// MessagesPerButton is the size of every button's message set.
const MessagesPerButton = 10

var messages = [model.ButtonCount][MessagesPerButton]string{
	model.ButtonSlap: {
		"SLAP",
		"OUCH",
		"THAT STUNG",
		"HIGH FIVE",
		"DO IT AGAIN",
		"SLAP HAPPY",
		"BOOM",
		"RIGHT IN THE LEDS",
		"WHO DID THAT",
		"SLAPPED 4 REAL",
	},
	model.ButtonCap: {
		"CAP",
		"NO CAP",
		"THATS CAP",
		"BIG CAP",
		"I'M OUT",
		"CAP DETECTED",
		"STOP THE CAP",
		"FULL OF CAP",
		"CAP 100",
		"CAPPING AGAIN",
	},
	model.ButtonSup: {
		"WASSUP THIS IS BINH",
		"SUP",
		"WHATS GOOD",
		"HEY THERE",
		"SUP DUDE",
		"YO",
		"HOWDY",
		"HELLO WORLD",
		"GOOD VIBES",
		"WASSUP 2 U",
	},
	model.ButtonPeace: {
		"PEACE",
		"PEACE OUT",
		"LATER",
		"BYE",
		"SEE YA",
		"STAY COOL",
		"CIAO",
		"GOOD NIGHT",
		"TAKE CARE",
		"PEACE AND LOVE",
	},
}

// Messages returns the candidate messages for b, or nil for ButtonNone.
func Messages(b model.Button) []string {
	if !b.Valid() {
		return nil
	}
	return messages[b][:]
}

// pickMessage chooses one of b's messages uniformly.
func pickMessage(r *rand.Rand, b model.Button) string {
	set := Messages(b)
	if len(set) == 0 {
		return ""
	}
	return set[r.Intn(len(set))]
}
