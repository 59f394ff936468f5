package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	limiter := New(2, 200*time.Millisecond)

	if !limiter.Allow() {
		t.Error("1st report should be allowed")
	}
	if !limiter.Allow() {
		t.Error("2nd report should be allowed")
	}
	if limiter.Allow() {
		t.Error("3rd report should be rejected")
	}
}

func TestAllowWithinBudgetSpreadArrivals(t *testing.T) {
	limiter := New(2, 300*time.Millisecond)

	// Reports spaced out inside one window must still hit the cap.
	allowed := 0
	for i := 0; i < 3; i++ {
		if i > 0 {
			time.Sleep(50 * time.Millisecond)
		}
		if limiter.Allow() {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed = %d reports within one window, want 2", allowed)
	}
}

func TestAllowAfterWindowElapses(t *testing.T) {
	limiter := New(2, 200*time.Millisecond)

	limiter.Allow()
	limiter.Allow()
	if limiter.Allow() {
		t.Fatal("budget should be exhausted")
	}

	time.Sleep(250 * time.Millisecond)

	if !limiter.Allow() {
		t.Error("report after the window should be allowed")
	}
}

func TestRejectionDoesNotConsumeBudget(t *testing.T) {
	limiter := New(1, 200*time.Millisecond)

	limiter.Allow()
	// Repeated rejections must not push the refill further out.
	for i := 0; i < 10; i++ {
		if limiter.Allow() {
			t.Fatalf("report %d should be rejected", i+2)
		}
	}

	time.Sleep(250 * time.Millisecond)
	if !limiter.Allow() {
		t.Error("budget should have refilled despite rejections")
	}
}

func TestMisconfigurationFallsBack(t *testing.T) {
	limiter := New(0, 0)

	if !limiter.Allow() {
		t.Error("fallback limiter should allow the first report")
	}
	if limiter.Allow() {
		t.Error("fallback limiter should reject an immediate second report")
	}
}
