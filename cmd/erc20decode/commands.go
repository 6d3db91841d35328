package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	app_service "erc20-transfer-indexer/internal/application/service"
	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/domain/service"
	"erc20-transfer-indexer/internal/infrastructure/blockchain"
	"erc20-transfer-indexer/internal/infrastructure/config"
	"erc20-transfer-indexer/internal/infrastructure/database"
	"erc20-transfer-indexer/internal/infrastructure/export"
	"erc20-transfer-indexer/internal/infrastructure/logger"
	"erc20-transfer-indexer/internal/infrastructure/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputCSV  = "csv"

	zeroAddress = "0x0000000000000000000000000000000000000000"
)

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "Decode one transaction given its fields",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "hash",
				Usage: "Transaction hash, only echoed in the output",
			},
			&cli.StringFlag{
				Name:  "from",
				Usage: "Sender address",
				Value: zeroAddress,
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Recipient address; omit for contract creation",
			},
			&cli.StringFlag{
				Name:  "value",
				Usage: "Wei attached to the transaction, decimal or 0x-hex",
				Value: "0",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Calldata as 0x-hex",
			},
		},
		Action: func(c *cli.Context) error {
			msg := &entity.TransactionMessage{
				Hash:  c.String("hash"),
				From:  c.String("from"),
				To:    c.String("to"),
				Value: c.String("value"),
				Data:  c.String("data"),
			}
			tx, err := msg.ToRawTransaction()
			if err != nil {
				return fmt.Errorf("invalid transaction: %w", err)
			}

			decoder, err := newDecoder(c)
			if err != nil {
				return err
			}
			return writeRows(c.App.Writer, c.String("output"), []*export.DecodedRow{decodeRow(decoder, tx)})
		},
	}
}

func csvCommand() *cli.Command {
	return &cli.Command{
		Name:      "csv",
		Usage:     "Decode every transaction in a CSV file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write results to this file instead of stdout",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("csv file is required")
			}

			inputs, err := export.ReadTransactionsFile(c.Args().Get(0))
			if err != nil {
				return err
			}

			decoder, err := newDecoder(c)
			if err != nil {
				return err
			}

			rows := make([]*export.DecodedRow, 0, len(inputs))
			for i, input := range inputs {
				msg, err := input.ToMessage()
				if err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				tx, err := msg.ToRawTransaction()
				if err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				rows = append(rows, decodeRow(decoder, tx))
			}

			out := c.App.Writer
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				out = f
			}

			format := c.String("output")
			if format == outputText && c.String("out") != "" {
				format = outputCSV
			}
			return writeRows(out, format, rows)
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a mined transaction over JSON-RPC and decode it",
		ArgsUsage: "TX_HASH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Ethereum JSON-RPC endpoint",
				EnvVars: []string{"ETHEREUM_RPC_URL"},
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Indexer config file to read ethereum.rpc_url from",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request timeout",
				Value: 15 * time.Second,
			},
			&cli.StringFlag{
				Name:  "network",
				Usage: "Network label attached to the transaction",
				Value: "ethereum",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("transaction hash is required")
			}
			hash := c.Args().Get(0)
			if len(common.FromHex(hash)) != common.HashLength {
				return fmt.Errorf("invalid transaction hash %q", hash)
			}

			ethCfg, err := ethereumConfig(c)
			if err != nil {
				return err
			}

			log, err := logger.New(c.String("log-level"), "console")
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer log.Sync()

			ctx := c.Context
			if ctx == nil {
				ctx = context.Background()
			}

			client, err := blockchain.NewEthereumClient(ctx, ethCfg, c.String("network"), log)
			if err != nil {
				return err
			}
			defer client.Close()

			tx, err := client.TransactionByHash(ctx, common.HexToHash(hash))
			if err != nil {
				return err
			}

			decoder := blockchain.NewERC20DecoderService(log)
			row := decodeRow(decoder, tx)
			if err := annotateRecipient(ctx, client, tx, row); err != nil {
				return err
			}
			return writeRows(c.App.Writer, c.String("output"), []*export.DecodedRow{row})
		},
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "List the tokens the decoder recognises",
		Action: func(c *cli.Context) error {
			tokens := blockchain.DefaultContractRegistry().Tokens()

			switch c.String("output") {
			case outputJSON:
				type tokenJSON struct {
					Symbol   string `json:"symbol"`
					Name     string `json:"name"`
					Address  string `json:"address"`
					Decimals uint8  `json:"decimals"`
				}
				out := make([]tokenJSON, 0, len(tokens))
				for _, t := range tokens {
					out = append(out, tokenJSON{Symbol: t.Symbol, Name: t.Name, Address: t.Address.Hex(), Decimals: t.Decimals})
				}
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			default:
				w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SYMBOL\tDECIMALS\tADDRESS\tNAME")
				for _, t := range tokens {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", t.Symbol, t.Decimals, t.Address.Hex(), t.Name)
				}
				return w.Flush()
			}
		},
	}
}

func walletCommand() *cli.Command {
	return &cli.Command{
		Name:      "wallet",
		Usage:     "Show indexed transfer statistics and recent transfers of a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Indexer config file with the neo4j settings",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of recent transfers to list",
				Value: 10,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}
			address := c.Args().Get(0)

			var (
				cfg *config.Config
				err error
			)
			if path := c.String("config"); path != "" {
				cfg, err = config.LoadFile(path)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}

			log, err := logger.New(c.String("log-level"), "console")
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer log.Sync()

			ctx := c.Context
			if ctx == nil {
				ctx = context.Background()
			}

			client := database.NewNeo4JClient(&cfg.Neo4J, log)
			if err := client.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to Neo4J: %w", err)
			}
			defer client.Close(ctx)

			indexer := app_service.NewIndexingApplicationService(
				database.NewNeo4JTransferRepository(client, log),
				blockchain.NewERC20DecoderService(log),
				metrics.NewMetrics(prometheus.NewRegistry()),
				cfg.App.Network,
				log,
			)

			stats, err := indexer.GetWalletStats(ctx, address)
			if err != nil {
				return err
			}
			transfers, err := indexer.GetTransfersForWallet(ctx, address, c.Int("limit"))
			if err != nil {
				return err
			}

			switch c.String("output") {
			case outputJSON:
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"stats":     stats,
					"transfers": transfers,
				})
			case outputCSV:
				return export.WriteTransfers(c.App.Writer, transfers)
			default:
				fmt.Fprintf(c.App.Writer, "Wallet: %s\n", stats.Address)
				fmt.Fprintf(c.App.Writer, "  Sent: %d to %d wallets\n", stats.TransfersSent, stats.OutgoingConnections)
				fmt.Fprintf(c.App.Writer, "  Received: %d from %d wallets\n", stats.TransfersReceived, stats.IncomingConnections)
				fmt.Fprintf(c.App.Writer, "  Tokens: %d\n", stats.TokenCount)
				if !stats.FirstSeen.IsZero() {
					fmt.Fprintf(c.App.Writer, "  Active: %s to %s\n", stats.FirstSeen.Format(time.RFC3339), stats.LastSeen.Format(time.RFC3339))
				}
				if len(transfers) > 0 {
					fmt.Fprintln(c.App.Writer)
					return export.WriteTransfers(c.App.Writer, transfers)
				}
				return nil
			}
		},
	}
}

func newDecoder(c *cli.Context) (service.ERC20DecoderService, error) {
	log, err := logger.New(c.String("log-level"), "console")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return blockchain.NewERC20DecoderService(log), nil
}

// ethereumConfig prefers --rpc-url and falls back to the config file
func ethereumConfig(c *cli.Context) (*config.EthereumConfig, error) {
	ethCfg := &config.EthereumConfig{
		RPCURL:         c.String("rpc-url"),
		RequestTimeout: c.Duration("timeout"),
	}
	if ethCfg.RPCURL != "" || c.String("config") == "" {
		return ethCfg, nil
	}

	cfg, err := config.LoadFile(c.String("config"))
	if err != nil {
		return nil, err
	}
	ethCfg.RPCURL = cfg.Ethereum.RPCURL
	if !c.IsSet("timeout") && cfg.Ethereum.RequestTimeout > 0 {
		ethCfg.RequestTimeout = cfg.Ethereum.RequestTimeout
	}
	return ethCfg, nil
}

type contractChecker interface {
	IsContract(ctx context.Context, address common.Address) (bool, error)
}

// annotateRecipient records whether the transaction target has code, which
// tells an unknown call to a wallet apart from one to a contract
func annotateRecipient(ctx context.Context, checker contractChecker, tx *entity.RawTransaction, row *export.DecodedRow) error {
	if tx.To == nil {
		return nil
	}
	isContract, err := checker.IsContract(ctx, *tx.To)
	if err != nil {
		return err
	}
	row.ToIsContract = &isContract
	return nil
}

func decodeRow(decoder service.ERC20DecoderService, tx *entity.RawTransaction) *export.DecodedRow {
	result, err := decoder.Decode(tx)
	return export.NewDecodedRow(tx, result, err)
}

func writeRows(w io.Writer, format string, rows []*export.DecodedRow) error {
	switch format {
	case outputCSV:
		return export.WriteDecoded(w, rows)
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(rows) == 1 {
			return enc.Encode(rows[0])
		}
		return enc.Encode(rows)
	case outputText:
		for i, row := range rows {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := writeText(w, row); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeText(w io.Writer, row *export.DecodedRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fields := []struct{ name, value string }{
		{"Hash", row.Hash},
		{"Kind", row.Kind},
		{"Method", row.Method},
		{"ERC20 method", row.ERC20Method},
		{"Selector", row.Selector},
		{"Contract", row.Contract},
		{"Token", row.Token},
		{"From", row.From},
		{"To", row.To},
		{"Amount", row.Amount},
		{"Units", row.Units},
		{"Error", row.Error},
	}
	if row.ToIsContract != nil {
		fields = append(fields, struct{ name, value string }{"Target has code", strconv.FormatBool(*row.ToIsContract)})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", f.name, f.value)
	}
	return tw.Flush()
}
