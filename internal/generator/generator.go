// Package generator builds randomized addition problems.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/mathrace/internal/model"
)

// MaxOperand is the largest value either operand can take.
const MaxOperand = 10

// Generator produces randomized addition problems.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a Generator with a fixed seed.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Question draws both operands uniformly from [0, MaxOperand].
func (g *Generator) Question() model.Question {
	a := g.rnd.Intn(MaxOperand + 1)
	b := g.rnd.Intn(MaxOperand + 1)
	return model.Question{A: a, B: b, Answer: a + b}
}

// Pick returns a uniformly chosen element of items, or "" when empty.
func (g *Generator) Pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[g.rnd.Intn(len(items))]
}
