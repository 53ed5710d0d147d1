// Sidecar exporter for the fitscore compose stack. It labels every container
// of the stack (server, worker, postgres, redpanda, redis) with its image and
// state so Grafana can join container health onto the service dashboards.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var containerInfo = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "fitscore_container_info",
		Help: "Metadata and state for containers in the fitscore stack",
	},
	[]string{"id", "name", "image", "service", "state"},
)

func init() {
	prometheus.MustRegister(containerInfo)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// collect refreshes the gauge from the Docker API, keeping only containers
// that belong to the configured compose project.
func collect(project string) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		log.Printf("docker client: %v", err)
		return
	}
	defer cli.Close()

	containers, err := cli.ContainerList(context.Background(), container.ListOptions{All: true})
	if err != nil {
		log.Printf("container list: %v", err)
		return
	}

	containerInfo.Reset()
	for _, c := range containers {
		if project != "" && c.Labels["com.docker.compose.project"] != project {
			continue
		}

		id := c.ID
		if len(id) > 12 {
			id = id[:12]
		}
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		service := c.Labels["com.docker.compose.service"]
		if service == "" {
			service = name
		}

		containerInfo.WithLabelValues(id, name, c.Image, service, c.State).Set(1)
	}
}

func main() {
	project := envOr("COMPOSE_PROJECT", "fitscore")
	addr := envOr("LISTEN_ADDR", ":8000")
	interval, err := time.ParseDuration(envOr("SCRAPE_INTERVAL", "15s"))
	if err != nil {
		log.Fatalf("SCRAPE_INTERVAL: %v", err)
	}

	go func() {
		for {
			collect(project)
			time.Sleep(interval)
		}
	}()

	http.Handle("/metrics", promhttp.Handler())
	log.Printf("fitscore container exporter listening on %s (project %q)", addr, project)
	log.Fatal(http.ListenAndServe(addr, nil))
}
