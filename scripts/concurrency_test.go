//go:build ignore
// +build ignore

// Package main provides a manual concurrency stress test for the borrow flow.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <user1:pass1> [user2:pass2 ...]
//
// Or use the convenience environment variables:
//
//	BOOK_ID=<id>  USERS=<u1:p1,u2:p2,...>  go run ./scripts/concurrency_test.go
//
// What it does:
//  1. Logs every user in through POST /login, keeping one cookie jar per user.
//  2. Fires all users at GET /borrow_book/<id> simultaneously.
//  3. Tallies the responses. Because rejected borrows redirect exactly like
//     successful ones, verify in the database afterwards that the book's stock
//     is non-negative and that the number of new borrow_records rows equals the
//     stock consumed.
//
// Prerequisites:
//   - Server must be running and seeded.
//   - The listed users must exist (register them first if needed).

package main

import (
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type borrowResult struct {
	Username   string
	StatusCode int
	Err        error
}

func main() {
	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var userSpecs []string
	if env := os.Getenv("USERS"); env != "" {
		userSpecs = strings.Split(env, ",")
	}

	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		userSpecs = args[1:]
	}

	if bookID == "" {
		log.Fatal("Usage: BOOK_ID=<id> USERS=<u1:p1,u2:p2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <user1:pass1> [user2:pass2 ...]")
	}
	if len(userSpecs) == 0 {
		log.Fatal("At least one user:password pair must be provided via USERS env or positional args")
	}

	fmt.Printf("=== Borrow Concurrency Test ===\n")
	fmt.Printf("Server : %s\n", serverAddr)
	fmt.Printf("Book   : %s\n", bookID)
	fmt.Printf("Users  : %d\n\n", len(userSpecs))

	// Log everyone in first; each user gets a cookie jar holding the session.
	clients := make([]*http.Client, len(userSpecs))
	names := make([]string, len(userSpecs))
	for i, spec := range userSpecs {
		parts := strings.SplitN(strings.TrimSpace(spec), ":", 2)
		if len(parts) != 2 {
			log.Fatalf("bad user spec %q, want user:password", spec)
		}
		client, err := loginClient(serverAddr, parts[0], parts[1])
		if err != nil {
			log.Fatalf("login failed for %q: %v", parts[0], err)
		}
		clients[i] = client
		names[i] = parts[0]
	}

	results := make([]borrowResult, len(clients))
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := range clients {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			results[idx] = attemptBorrow(clients[idx], names[idx], serverAddr, bookID)
		}(i)
	}

	fmt.Println("Firing all requests simultaneously...")
	close(start)
	wg.Wait()
	fmt.Println("All requests completed.")

	var redirects, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] user=%-20s err=%v\n", r.Username, r.Err)
		case r.StatusCode == http.StatusFound || r.StatusCode == http.StatusOK:
			redirects++
			fmt.Printf("  [OK  ] user=%-20s status=%d\n", r.Username, r.StatusCode)
		default:
			failures++
			fmt.Printf("  [FAIL] user=%-20s status=%d\n", r.Username, r.StatusCode)
		}
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Completed : %d\n", redirects)
	fmt.Printf("Failures  : %d\n", failures)
	fmt.Printf("Total     : %d\n\n", len(results))

	fmt.Println("--- Invariant Check ---")
	fmt.Println("Each borrow runs in one transaction with the book row locked FOR UPDATE,")
	fmt.Println("so stock can never go below zero. Verify in the database that")
	fmt.Println("books.stock >= 0 and that the new borrow_records count equals the stock consumed.")

	if failures > 0 {
		os.Exit(1)
	}
}

// loginClient posts the login form and returns a client whose cookie jar holds
// the session cookie.
func loginClient(serverAddr, username, password string) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	form := url.Values{"username": {username}, "password": {password}}
	resp, err := client.PostForm(serverAddr+"/login", form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// A successful login ends at /dashboard after the redirect.
	if resp.Request.URL.Path != "/dashboard" {
		return nil, fmt.Errorf("login rejected (landed on %s)", resp.Request.URL.Path)
	}
	return client, nil
}

// attemptBorrow hits GET /borrow_book/<id> without following the redirect so
// the raw status is visible.
func attemptBorrow(client *http.Client, username, serverAddr, bookID string) borrowResult {
	noRedirect := *client
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noRedirect.Get(fmt.Sprintf("%s/borrow_book/%s", serverAddr, bookID))
	if err != nil {
		return borrowResult{Username: username, Err: err}
	}
	defer resp.Body.Close()

	return borrowResult{Username: username, StatusCode: resp.StatusCode}
}
