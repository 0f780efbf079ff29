// Package promocode генерирует промокоды реферальной программы.
package promocode

import (
	"math/rand"
	"sync"
)

// Length — длина промокода.
const Length = 8

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate возвращает случайный промокод из Length символов
// (заглавные латинские буквы и цифры). Источник случайности передаётся
// явно, чтобы в тестах код был детерминированным.
func Generate(rng *rand.Rand) string {
	code := make([]byte, Length)
	for i := range code {
		code[i] = charset[rng.Intn(len(charset))]
	}
	return string(code)
}

// Generator — потокобезопасная обёртка над источником случайности.
// *rand.Rand сам по себе нельзя дёргать из нескольких горутин.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

func (g *Generator) Code() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Generate(g.rng)
}
