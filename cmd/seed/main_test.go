package main

import (
	"math/rand/v2"
	"regexp"
	"testing"
)

func TestRandomInputShape(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	serial := regexp.MustCompile(`^TEST\d{12}$`)
	vcode := regexp.MustCompile(`^\d{6}$`)
	uid := regexp.MustCompile(`^[0-9A-F]{16}$`)
	for i := 0; i < 50; i++ {
		in := randomInput(rng)
		if !serial.MatchString(in.SerialNumber) || !vcode.MatchString(in.VerificationCode) || !uid.MatchString(in.DevUID) {
			t.Fatalf("unexpected seed input: %+v", in)
		}
	}
}
