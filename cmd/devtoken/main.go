// Command devtoken mints a session token for the phone, signed with the same
// secret the phone is configured with.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/wristnote/internal/auth"
)

func main() {
	fs := flag.NewFlagSet("devtoken", flag.ExitOnError)
	user := fs.String("u", "", "user id to embed in the token")
	secret := fs.String("s", "secretKey", "JWT HMAC secret key")
	ttl := fs.Duration("ttl", 24*time.Hour, "token validity")
	_ = fs.Parse(os.Args[1:])

	if *user == "" {
		fs.Usage()
		os.Exit(2)
	}

	tok, err := auth.GenerateToken(*user, []byte(*secret), *ttl)
	if err != nil {
		log.Fatalf("%v", err)
	}
	fmt.Println(tok)
}
