package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var mu sync.Mutex
var seededRand *rand.Rand

func init() {
	seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))
}

// GenerateOrderID builds the externally visible payment order id. The
// prefix is fixed per deployment so ops can spot our orders in bank
// mutations at a glance.
func GenerateOrderID(ticketID uint) string {
	mu.Lock()
	defer mu.Unlock()

	nowNano := time.Now().UnixNano()
	nanoPart := nowNano % 1000000

	randPart := seededRand.Intn(900) + 100

	return fmt.Sprintf("WAC-%06d%03d%d", nanoPart, randPart, ticketID)
}

// GenerateTicketNo builds a human-readable ticket number.
func GenerateTicketNo() string {
	mu.Lock()
	defer mu.Unlock()

	randPart := seededRand.Intn(9000) + 1000
	return fmt.Sprintf("T-%s-%04d", time.Now().Format("20060102"), randPart)
}

// GenerateUniqueCode returns a random three-digit disambiguation code and
// the amount the customer is asked to transfer: base plus the code. Two
// tickets requesting the same base amount then differ in the last three
// digits, which is what manual verification keys on.
func GenerateUniqueCode(baseAmount int64) (string, int64) {
	mu.Lock()
	defer mu.Unlock()

	code := seededRand.Intn(900) + 100
	return fmt.Sprintf("%03d", code), baseAmount + int64(code)
}
