// Package clock предоставляет источник текущего времени, который можно
// подменить в тестах.
package clock

import "time"

// Clock возвращает текущее время.
type Clock interface {
	Now() time.Time
}

// Real: системные часы, время всегда в UTC.
type Real struct{}

// Now возвращает текущее время в UTC.
func (Real) Now() time.Time {
	return time.Now().UTC()
}

// Fixed: часы, всегда возвращающие одно и то же время.
type Fixed struct {
	T time.Time
}

// Now возвращает зафиксированное время.
func (f *Fixed) Now() time.Time {
	return f.T
}

// Advance сдвигает зафиксированное время на d.
func (f *Fixed) Advance(d time.Duration) {
	f.T = f.T.Add(d)
}
