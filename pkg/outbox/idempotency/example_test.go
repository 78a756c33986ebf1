package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func ExampleGuard_Claim() {
	ctx := context.Background()
	guard, _ := NewGuard(newMemoryStore(), 7*24*time.Hour, time.Minute)
	eventID := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	first, _ := guard.Claim(ctx, "notifications-orders", eventID)
	fmt.Println(first)

	concurrent, _ := guard.Claim(ctx, "notifications-orders", eventID)
	fmt.Println(concurrent)

	_ = guard.Complete(ctx, "notifications-orders", eventID)
	redelivered, _ := guard.Claim(ctx, "notifications-orders", eventID)
	fmt.Println(redelivered)
	// Output:
	// acquired
	// in_flight
	// done
}
