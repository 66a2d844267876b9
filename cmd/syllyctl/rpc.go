package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"

	svc "github.com/joseph-ayodele/syllabus-tracker/internal/server"
)

var rpcAddr string

// rpcCmd calls a running syllabusd, e.g.
//
//	syllyctl rpc SubmitPages '{"paths":["p1.jpg"],"start":true,"wait":true}'
var rpcCmd = &cobra.Command{
	Use:   "rpc <method> [json]",
	Short: "Call a method of a running syllabusd",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		req := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &req); err != nil {
				return fmt.Errorf("request must be a JSON object: %w", err)
			}
		}
		conn, err := grpc.NewClient(rpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return err
		}
		defer conn.Close()

		out, err := svc.NewClient(conn).Call(ctx, args[0], req)
		if err != nil {
			return err
		}
		raw, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(out)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return err
	},
}

func init() {
	rpcCmd.Flags().StringVar(&rpcAddr, "addr", "localhost:8080", "syllabusd address")
	rootCmd.AddCommand(rpcCmd)
}
