// Command rtprecv is the receiver's external entry point: three
// positional arguments (listen port, file path, window size). The
// window-size argument is accepted but not used by the core (spec.md §6
// EXTERNAL INTERFACES), matching the original implementation's own
// unused parameter.
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
		Use:   "rtprecv <listen-port> <file-path> <window-size>",
		Short: "Receive a file over the reliable UDP-based file-transfer transport",
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

func run(portStr, filePath, windowSizeStr, metricsAddr string) error {
	logging.Banner("rtprecv", version)

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}
	if _, err := strconv.Atoi(windowSizeStr); err != nil {
		return fmt.Errorf("invalid window size %q: %w", windowSizeStr, err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
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

	ep := rtp.NewEndpoint(conn, collector)

	logging.Infof("listening on port %d", port)
	if err := ep.Accept(); err != nil {
		return fmt.Errorf("accept: %w", err)
	}

	logging.Infof("connected, receiving file")
	payload, err := ep.RecvFile()
	if err != nil {
		return fmt.Errorf("recv_file: %w", err)
	}

	if err := os.WriteFile(filePath, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filePath, err)
	}
	logging.Infof("wrote %d bytes to %s", len(payload), filePath)

	if err := ep.WaitClose(); err != nil {
		logging.Warnf("wait_close: %v (transfer already succeeded)", err)
	}

	logging.Infof("receiver exiting")
	return nil
}
