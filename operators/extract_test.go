package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractAnswer(t *testing.T) {
	tests := []struct {
		name     string
		solution string
		want     string
	}{
		{"hope sentence", "So the final answer is $12$. I hope it is correct.", "12"},
		{"boxed braces", `Thus $\boxed{\frac{1}{2}}$.`, `\frac{1}{2}`},
		{"last boxed wins", `\boxed{1} then \boxed{3}`, "3"},
		{"boxed without braces", `so \boxed 5$ done`, "5"},
		{"the answer is", "Adding up, the answer is 17.", "17"},
		{"last number", "We get 3 apples and then 1,250 pears", "1250"},
		{"negative decimal", "temperature drops to -3.5", "-3.5"},
		{"nothing", "no digits here", ""},
		{"dfrac and left right", `\boxed{\left(\dfrac{1}{2}\right)}`, `(\frac{1}{2})`},
		{"text macro", `\boxed{\text{east}}`, "east"},
		{"percent", "the answer is 50%.", "50"},
		{"variable prefix", `\boxed{x=4}`, "4"},
		{"sqrt shorthand", `\boxed{\sqrt2}`, `\sqrt{2}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractAnswer(tt.solution))
		})
	}
}
