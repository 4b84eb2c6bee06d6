package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"dbc/pkg/client"
	"dbc/pkg/command"

	"github.com/ergochat/readline"
)

const Prompt = "dbc> "

var completer = readline.NewPrefixCompleter(
	readline.PcItem("put"),
	readline.PcItem("get"),
	readline.PcItem("del"),
	readline.PcItem("size"),
	readline.PcItem("keys"),
	readline.PcItem("clear"),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func main() {
	serverAddr := flag.String("addr", "localhost:9090", "dbc TCP server address")
	flag.Parse()

	fmt.Printf("dbc CLI (Target: %s)\n", *serverAddr)
	fmt.Println("Connecting...")

	cli, err := client.Dial(*serverAddr)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Println("Tip: Ensure the server is running (e.g. go run ./cmd/server).")
		return
	}
	defer cli.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          Prompt,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Terminal setup failed: %v\n", err)
		return
	}
	defer rl.Close()
	fmt.Println("Connected! Type 'help' for commands.")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if err != nil {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		cmd, err := command.Parse(line)
		if err != nil {
			fmt.Printf("Error: %v. Type 'help'.\n", err)
			continue
		}

		switch cmd.Op {
		case "put":
			handlePut(cli, cmd)
		case "get":
			handleGet(cli, cmd)
		case "del":
			handleDel(cli, cmd)
		case "size":
			handleSize(cli)
		case "keys":
			handleKeys(cli, cmd.Limit)
		case "clear":
			handleClear(cli)
		case "help":
			printHelp()
		case "exit":
			fmt.Println("Bye!")
			return
		}
	}
}

func handlePut(cli *client.Client, cmd *command.Command) {
	start := time.Now()
	err := cli.Put(cmd.Key, cmd.Value)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("OK (%v)\n", duration)
	}
}

func handleGet(cli *client.Client, cmd *command.Command) {
	start := time.Now()
	val, err := cli.Get(cmd.Key)
	duration := time.Since(start)

	switch {
	case errors.Is(err, client.ErrNotFound):
		fmt.Printf("(nil) (%v)\n", duration)
	case err != nil:
		fmt.Printf("Error: %v\n", err)
	default:
		fmt.Printf("\"%s\" (%v)\n", val, duration)
	}
}

func handleDel(cli *client.Client, cmd *command.Command) {
	start := time.Now()
	err := cli.Delete(cmd.Key)
	duration := time.Since(start)

	switch {
	case errors.Is(err, client.ErrNotFound):
		fmt.Println("Not found")
	case err != nil:
		fmt.Printf("Error: %v\n", err)
	default:
		fmt.Printf("Deleted (%v)\n", duration)
	}
}

func handleSize(cli *client.Client) {
	n, err := cli.Size()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(n)
}

func handleKeys(cli *client.Client, limit int) {
	keys, err := cli.Keys()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if limit < 0 {
		limit = 20
	}
	fmt.Printf("%d keys:\n", len(keys))
	for i, k := range keys {
		if i >= limit {
			fmt.Printf("... and %d more\n", len(keys)-limit)
			break
		}
		fmt.Printf("  %s\n", k)
	}
}

func handleClear(cli *client.Client) {
	if err := cli.Clear(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Cleared")
}

func printHelp() {
	fmt.Println(`
Commands:
  put <key> <value>      Insert/Update entry ("quoted" keys keep spaces)
  get <key>              Retrieve entry
  del <key>              Delete entry
  size                   Number of entries
  keys [limit <n>]       List keys (first 20 by default)
  clear                  Remove every entry
  exit                   Exit CLI
	`)
}
