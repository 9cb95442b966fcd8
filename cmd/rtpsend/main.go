// Command rtpsend is the sender's external entry point: three positional
// arguments (receiver ip, receiver port, file path), reading the file
// into memory and handing the byte stream to the rtp engine. Argument
// parsing and file I/O are explicitly out of the core transport's scope
// (spec.md §1) — this command is the "external collaborator" layer that
// owns both.
package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vsilenzioso/gortp/internal/logging"
	"github.com/vsilenzioso/gortp/internal/metrics"
	"github.com/vsilenzioso/gortp/internal/rtp"
)

const version = "1.0.0"

func main() {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "rtpsend <receiver-ip> <receiver-port> <file-path>",
		Short: "Send a file over the reliable UDP-based file-transfer transport",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], args[2], metricsAddr)
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", viper.GetString("RTP_METRICS_ADDR"),
		"optional host:port to serve Prometheus metrics on")
	viper.SetEnvPrefix("RTP")
	viper.AutomaticEnv()

	if err := cmd.Execute(); err != nil {
		logging.Fatalf("%v", err)
	}
}

func run(receiverIP, receiverPortStr, filePath, metricsAddr string) error {
	logging.Banner("rtpsend", version)

	receiverPort, err := strconv.Atoi(receiverPortStr)
	if err != nil {
		return fmt.Errorf("invalid receiver port %q: %w", receiverPortStr, err)
	}

	payload, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{})
	if err != nil {
		return fmt.Errorf("bind socket: %w", err)
	}
	defer conn.Close()

	var collector rtp.Metrics
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector = metrics.NewCollector(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logging.Infof("metrics listening on %s", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logging.Warnf("metrics server stopped: %v", err)
			}
		}()
	}

	peer := &net.UDPAddr{IP: net.ParseIP(receiverIP), Port: receiverPort}
	ep := rtp.NewEndpoint(conn, collector)

	logging.Infof("connecting to %s:%d", receiverIP, receiverPort)
	if err := ep.Connect(peer); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	logging.Infof("sending %d bytes", len(payload))
	if err := ep.SendFile(payload); err != nil {
		return fmt.Errorf("send_file: %w", err)
	}

	if err := ep.Close(); err != nil {
		// Teardown incompleteness is non-fatal: the transfer already
		// succeeded (spec.md ERROR HANDLING DESIGN).
		logging.Warnf("close: %v (transfer already succeeded)", err)
	}

	logging.Infof("transfer complete")
	return nil
}
