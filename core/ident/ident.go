// Package ident assigns the human readable student and teacher identifiers.
//
// A student ID is YY + exam unit (2 digits) + gender digit + a 4 digits sequence,
// a teacher ID is "T" + YY + gender digit + a 4 digits sequence.
// YY are the last two digits of the Buddhist year.
package ident

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/pondok/core"
)

var (
	ErrUnknownGender = errors.New("gender must be male or female")
	ErrInvalidUnit   = errors.New("exam unit must be 1 or 2 digits")
	// ErrConflict must be returned by inserts when the identifier is already taken.
	ErrConflict    = errors.New("identifier already taken")
	ErrExhausted   = errors.New("identifier sequence exhausted")
	ErrNotAssigned = errors.New("could not assign identifier")
)

const (
	TeacherMark  = "T"
	SequenceLen  = 4
	MaxSequence  = 9999
	PasswordLen  = 8
	maxAttempts  = 3
	seqFormat    = "%04d"
	maleDigit    = "1"
	femaleDigit  = "2"
	yearCodeSize = 2
)

// SequenceSource gives the highest sequence already used by the identifiers starting with prefix, 0 if none.
type SequenceSource interface {
	MaxSequence(ctx context.Context, prefix string) (int, error)
}

// GenderDigit encodes g in an identifier.
func GenderDigit(g core.Gender) (string, error) {
	switch g {
	case core.GenderMale:
		return maleDigit, nil
	case core.GenderFemale:
		return femaleDigit, nil
	default:
		return "", ErrUnknownGender
	}
}

// YearCode returns the last two digits of the Buddhist year of t.
func YearCode(t time.Time) string {
	return fmt.Sprintf("%0*d", yearCodeSize, core.BuddhistYear(t.Year())%100)
}

// StudentPrefix returns the prefix shared by the students created at t with the same exam unit and gender.
func StudentPrefix(t time.Time, unit string, g core.Gender) (string, error) {
	unit = core.CleanString(unit)
	n, err := strconv.Atoi(unit)
	if err != nil || n < 0 || len(unit) > 2 {
		return "", ErrInvalidUnit
	}
	gd, err := GenderDigit(g)
	if err != nil {
		return "", err
	}
	return YearCode(t) + fmt.Sprintf("%02d", n) + gd, nil
}

// TeacherPrefix returns the prefix shared by the teachers created at t with the same gender.
func TeacherPrefix(t time.Time, g core.Gender) (string, error) {
	gd, err := GenderDigit(g)
	if err != nil {
		return "", err
	}
	return TeacherMark + YearCode(t) + gd, nil
}

// Sequence extracts the sequence of id, ok is false when id is not prefix followed by 4 digits.
func Sequence(prefix, id string) (seq int, ok bool) {
	if !strings.HasPrefix(id, prefix) || len(id) != len(prefix)+SequenceLen {
		return 0, false
	}
	seq, err := strconv.Atoi(id[len(prefix):])
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// Assigner hands out identifiers one prefix at a time.
// Assignments sharing a prefix are serialized; the storage unique key catches writers from other processes.
type Assigner struct {
	src   SequenceSource
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAssigner(src SequenceSource) *Assigner {
	return &Assigner{src: src, locks: make(map[string]*sync.Mutex)}
}

func (a *Assigner) lock(prefix string) func() {
	a.mu.Lock()
	l, ok := a.locks[prefix]
	if !ok {
		l = new(sync.Mutex)
		a.locks[prefix] = l
	}
	a.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Assign computes the next identifier for prefix and hands it to insert.
// When insert reports ErrConflict, the next sequence is read again, up to 3 attempts.
func (a *Assigner) Assign(ctx context.Context, prefix string, insert func(id string) error) (string, error) {
	unlock := a.lock(prefix)
	defer unlock()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		last, err := a.src.MaxSequence(ctx, prefix)
		if err != nil {
			return "", errors.Wrap(err, "reading max sequence")
		}
		if last >= MaxSequence {
			return "", ErrExhausted
		}

		id := prefix + fmt.Sprintf(seqFormat, last+1)
		err = insert(id)
		if err == nil {
			return id, nil
		}
		if errors.Cause(err) != ErrConflict {
			return "", err
		}
	}
	return "", ErrNotAssigned
}

// RandomDigits returns n uniformly random decimal digits.
func RandomDigits(n int) (string, error) {
	var sb strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", errors.Wrap(err, "generating digit")
		}
		sb.WriteString(d.String())
	}
	return sb.String(), nil
}
