package strategy_test

import (
	"math"
	"testing"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/strategy"
	"github.com/stretchr/testify/assert"
)

func sineCloses(n int, amplitude, baseline float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = baseline + amplitude*math.Sin(float64(i)*0.3)
	}
	return out
}

func TestMACD_HoldsOnInsufficientData(t *testing.T) {
	m := strategy.NewMACD(config.MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9})
	signal := m.Analyze(closesSeries([]float64{1, 2, 3}), strategy.Context{})
	assert.Equal(t, strategy.Hold, signal)
}

func TestMACD_EmitsSignalOnCrossover(t *testing.T) {
	m := strategy.NewMACD(config.MACDConfig{FastPeriod: 3, SlowPeriod: 6, SignalPeriod: 3})
	closes := sineCloses(60, 10, 100)

	seenSignal := false
	for i := 10; i <= len(closes); i++ {
		sig := m.Analyze(closesSeries(closes[:i]), strategy.Context{})
		if sig != strategy.Hold {
			seenSignal = true
		}
	}
	assert.True(t, seenSignal, "an oscillating series should eventually cross MACD/signal")
}

func TestMACD_Reset(t *testing.T) {
	m := strategy.NewMACD(config.MACDConfig{FastPeriod: 3, SlowPeriod: 6, SignalPeriod: 3})
	m.Analyze(closesSeries(sineCloses(20, 10, 100)), strategy.Context{})
	m.Reset()
	// After reset the next call re-seeds prevMACD/prevSignal and cannot signal yet.
	signal := m.Analyze(closesSeries(sineCloses(20, 10, 100)), strategy.Context{})
	assert.Equal(t, strategy.Hold, signal)
}
