package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/FWaldi/Ulasis-cmplte-1-sub002/internal/transport/grpc/sessionv1"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC address of the admin auth service")
	logout := flag.Bool("logout", false, "log the session out after introspecting it")
	flag.Parse()

	token := os.Getenv("ADMIN_TOKEN")
	if token == "" {
		log.Fatal("ADMIN_TOKEN must hold a bearer token")
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("did not connect: %v", err)
	}
	defer conn.Close()

	client := sessionv1.NewSessionServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)

	resp, err := client.Introspect(ctx, &sessionv1.IntrospectRequest{})
	if err != nil {
		log.Fatalf("Introspect failed: %v", err)
	}
	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))

	if *logout {
		if _, err := client.Logout(ctx, &sessionv1.LogoutRequest{}); err != nil {
			log.Fatalf("Logout failed: %v", err)
		}
		fmt.Println("session logged out")
	}
}
