// Command keygen writes an RSA signing key into the JWT key directory. The
// file name becomes the key id.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

func main() {
	dir := flag.String("dir", "./keys", "JWT key directory")
	kid := flag.String("kid", "", "key id, defaults to the current date")
	bits := flag.Int("bits", 2048, "RSA modulus size")
	flag.Parse()

	if *bits < 2048 {
		log.Fatalf("refusing to generate a %d-bit key", *bits)
	}
	if *kid == "" {
		*kid = time.Now().UTC().Format("20060102-150405")
	}

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		log.Fatalf("encode key: %v", err)
	}

	if err := os.MkdirAll(*dir, 0o700); err != nil {
		log.Fatalf("create key directory: %v", err)
	}
	path := filepath.Join(*dir, *kid+".pem")
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		log.Fatalf("create key file: %v", err)
	}
	defer file.Close()

	if err := pem.Encode(file, &pem.Block{Type: "PRIVATE KEY", Bytes: der}); err != nil {
		log.Fatalf("write key: %v", err)
	}
	fmt.Printf("wrote %s (kid %s)\n", path, *kid)
}
