// Command simulate-bookings fires concurrent reservations at a running API
// and checks that no seat ends up sold twice.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/quickseat-booking/internal/auth"
)

var (
	apiURL    = flag.String("api", "http://localhost:3000", "API base URL")
	showID    = flag.String("show", "", "Show ID (required)")
	secret    = flag.String("jwt-secret", "jwt-secret", "JWT secret shared with the API")
	issuer    = flag.String("jwt-issuer", "", "JWT issuer")
	numUsers  = flag.Int("users", 200, "Number of concurrent users")
	maxSeats  = flag.Int("max-seats", 3, "Seats per attempt (1..n)")
	rows      = flag.String("rows", "ABCDEFGHIJ", "Seat rows to pick from")
	seatsPerR = flag.Int("seats-per-row", 9, "Seats per row")
	timeout   = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
)

type createResp struct {
	Success   bool   `json:"success"`
	BookingID string `json:"bookingId"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type seatsResp struct {
	OccupiedSeats []string `json:"occupiedSeats"`
}

type result struct {
	user      string
	seats     []string
	bookingID string
	status    int
	code      string
	err       error
}

func main() {
	flag.Parse()

	if *showID == "" {
		fmt.Println("Error: --show flag is required")
		flag.Usage()
		os.Exit(1)
	}

	verifier := auth.NewTokenVerifier(*secret, *issuer)
	client := &http.Client{Timeout: *timeout}
	ctx := context.Background()

	fmt.Printf("🚀 %d users booking show %s\n", *numUsers, *showID)
	start := time.Now()

	results := make(chan result, *numUsers)
	var wg sync.WaitGroup
	for i := 0; i < *numUsers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- reserve(ctx, client, verifier, fmt.Sprintf("sim-%d-%s", i, uuid.NewString()[:8]))
		}(i)
	}
	wg.Wait()
	close(results)

	var (
		booked    = map[string]string{}
		ok        int
		conflicts int
		failed    int
		doubled   []string
	)
	for r := range results {
		switch {
		case r.err != nil:
			failed++
		case r.status == http.StatusCreated:
			ok++
			for _, s := range r.seats {
				if prev, taken := booked[s]; taken {
					doubled = append(doubled, fmt.Sprintf("%s (%s, %s)", s, prev, r.bookingID))
				}
				booked[s] = r.bookingID
			}
		case r.status == http.StatusConflict:
			conflicts++
		default:
			failed++
			fmt.Printf("❌ %s: %d %s\n", r.user, r.status, r.code)
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("⏱️  Completed in %v (%.0f req/sec)\n", elapsed, float64(*numUsers)/elapsed.Seconds())
	fmt.Printf("   Booked: %d | Conflicts: %d | Failed: %d | Seats held: %d\n", ok, conflicts, failed, len(booked))

	occupied, err := occupiedSeats(ctx, client)
	if err != nil {
		fmt.Printf("❌ Failed to read occupied seats: %v\n", err)
		os.Exit(1)
	}
	missing := 0
	for s := range booked {
		if !contains(occupied, s) {
			missing++
		}
	}
	fmt.Printf("📊 Server reports %d occupied seats, %d booked seats missing\n", len(occupied), missing)

	if len(doubled) > 0 {
		sort.Strings(doubled)
		fmt.Printf("🔥 Double-booked seats: %v\n", doubled)
		os.Exit(2)
	}
	fmt.Println("✅ No seat was sold twice")
}

func reserve(ctx context.Context, client *http.Client, verifier *auth.TokenVerifier, user string) result {
	res := result{user: user, seats: pickSeats()}

	token, err := verifier.Issue(auth.Identity{UserID: user, Email: user + "@sim.local"}, time.Hour)
	if err != nil {
		res.err = err
		return res
	}

	body, _ := json.Marshal(map[string]interface{}{"showId": *showID, "seatLabels": res.seats})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *apiURL+"/api/booking/create", bytes.NewReader(body))
	if err != nil {
		res.err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		res.err = err
		return res
	}
	defer resp.Body.Close()

	var out createResp
	_ = json.NewDecoder(resp.Body).Decode(&out)
	res.status = resp.StatusCode
	res.bookingID = out.BookingID
	res.code = out.Code
	return res
}

func occupiedSeats(ctx context.Context, client *http.Client) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *apiURL+"/api/booking/seats/"+*showID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var out seatsResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.OccupiedSeats, nil
}

// pickSeats chooses adjacent seats in a random row so attempts overlap.
func pickSeats() []string {
	n := 1 + rand.Intn(*maxSeats)
	row := string((*rows)[rand.Intn(len(*rows))])
	first := 1 + rand.Intn(*seatsPerR-n+1)

	seats := make([]string, 0, n)
	for i := 0; i < n; i++ {
		seats = append(seats, fmt.Sprintf("%s%d", row, first+i))
	}
	return seats
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
