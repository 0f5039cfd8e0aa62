// Command healthcheck queries the gRPC health service of a running api and
// exits non-zero unless it reports SERVING. It is used as the container
// health check.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

func main() {
	log.SetFlags(0)
	var (
		addr    = flag.String("addr", envOr("ONCOHUB_HEALTH_ADDR", "localhost:9090"), "gRPC address")
		service = flag.String("service", "", "Service name to check (empty: whole server)")
		timeout = flag.Duration("timeout", 3*time.Second, "Health check timeout")
		asJSON  = flag.Bool("json", false, "Print the raw health response as JSON")
	)
	flag.Parse()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: *service})
	if err != nil {
		log.Fatalf("health check %s: %v", *addr, err)
	}
	if *asJSON {
		out, err := protojson.Marshal(resp)
		if err != nil {
			log.Fatalf("encode response: %v", err)
		}
		fmt.Println(string(out))
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		log.Fatalf("%s is %s", *addr, resp.GetStatus())
	}
	if !*asJSON {
		fmt.Printf("%s is serving\n", *addr)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
