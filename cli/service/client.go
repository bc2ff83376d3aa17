package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/marcusolsson/tui-go"
	"github.com/urfave/cli/v2"
)

// ManagerConsole is the operator console talking to a running engine
// over the manager socket.
type ManagerConsole struct {
	cli *cli.App
}

func NewManagerConsole(cli *cli.App) *ManagerConsole {
	return &ManagerConsole{cli: cli}
}

func (mc *ManagerConsole) Execute(args []string) error {
	return mc.cli.Run(append(make([]string, 1, len(args)+1), args...))
}

func completer(commands cli.Commands) prompt.Completer {
	cmdHints := make([]prompt.Suggest, 0, len(commands))
	for _, command := range commands {
		cmdHints = append(cmdHints, prompt.Suggest{Text: command.Name, Description: command.Usage})
	}
	return func(doc prompt.Document) []prompt.Suggest {
		before := doc.TextBeforeCursor()
		wordsBefore := strings.Split(before, " ")
		// the command being entered is the text until the first space
		commandBefore := wordsBefore[0]
		if len(wordsBefore) == 1 {
			return prompt.FilterHasPrefix(cmdHints, commandBefore, true)
		}

		var flagHints []prompt.Suggest

		if strings.Contains(before, "--help") {
			return flagHints
		}

		for _, command := range commands {
			if !command.HasName(commandBefore) {
				continue
			}

			for _, flag := range command.VisibleFlags() {
				tag := "--" + flag.Names()[0]
				if strings.Contains(before, tag) {
					continue
				}
				if len(wordsBefore) > 2 && tag == "--help" {
					continue
				}
				neededValue := "="
				if _, ok := flag.(*cli.BoolFlag); ok {
					neededValue = " "
				}
				flagHints = append(flagHints, prompt.Suggest{
					Text:        tag + neededValue,
					Description: strings.ReplaceAll(flag.String(), "\t", " "),
				})
			}
			break
		}

		return prompt.FilterFuzzy(flagHints, wordsBefore[len(wordsBefore)-1], true)
	}
}

// Cli runs the interactive REPL of the console
func (mc *ManagerConsole) Cli(ctx context.Context) {
	completer := completer(mc.cli.Commands)
	var history []string
	for {
		select {
		case <-ctx.Done():
			return
		default:
			t := prompt.Input(">>> ", completer,
				prompt.OptionHistory(history),
				prompt.OptionShowCompletionAtStart(),
			)
			if err := mc.Execute(strings.Fields(t)); err != nil {
				_, _ = fmt.Fprintln(os.Stderr, err)
			}
			history = append(history, t)
		}
	}
}

// managerClient issues requests against the unix manager socket
type managerClient struct {
	http *http.Client
}

func newManagerClient(socketPath string) *managerClient {
	return &managerClient{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

func (c *managerClient) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	u := &url.URL{Scheme: "http", Host: "manager", Path: path, RawQuery: query.Encode()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var fail struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &fail); err == nil && fail.Error != "" {
			return errors.New(fail.Error)
		}
		return fmt.Errorf("manager: %s", resp.Status)
	}

	return json.Unmarshal(body, result)
}

// NewCLI builds the console bound to the manager socket
func NewCLI(socketPath string) (*ManagerConsole, error) {
	client := newManagerClient(socketPath)

	app := cli.NewApp()
	app.CommandNotFound = func(ctx *cli.Context, cmd string) {
		fmt.Println(fmt.Sprintf("No help topic for '%v'", cmd))
	}
	app.UseShortOptionHandling = true
	jsonFlag := &cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Required: false, Usage: "echo in json format"}

	app.Commands = []*cli.Command{
		{
			Name:    "status",
			Aliases: []string{"s"},
			Usage:   "display the current status of the engine",
			Flags: []cli.Flag{
				jsonFlag,
			},
			Action: statusCMD(client),
		},
		{
			Name:    "markets",
			Aliases: []string{"m"},
			Usage:   "list every market with its reserves and phase",
			Action:  marketsCMD(client),
		},
		{
			Name:    "prune_blocks",
			Aliases: []string{"pb"},
			Usage:   "delete old state versions",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "from", Aliases: []string{"f"}, Required: true},
				&cli.IntFlag{Name: "to", Aliases: []string{"t"}, Required: true},
			},
			Action: pruneBlocksCMD(client),
		},
		{
			Name:    "dashboard",
			Aliases: []string{"db"},
			Usage:   "Show dashboard",
			Action:  dashboardCMD(client),
		},
		{
			Name:    "exit",
			Aliases: []string{"e"},
			Usage:   "exit",
			Action:  exitCMD,
		},
	}

	for _, command := range app.Commands {
		command.Flags = append(command.Flags, cli.HelpFlag)
	}

	app.Setup()
	return NewManagerConsole(app), nil
}

func exitCMD(_ *cli.Context) error {
	os.Exit(0)
	return nil
}

func statusCMD(client *managerClient) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		var response StatusResponse
		if err := client.get(c.Context, "/status", nil, &response); err != nil {
			return err
		}

		if c.Bool("json") {
			bb, err := json.Marshal(response)
			if err != nil {
				return err
			}
			fmt.Println(string(bb))
			return nil
		}

		fmt.Println("Version:", response.Version)
		fmt.Println("Latest Block Height:", response.LatestBlockHeight)
		fmt.Println("Latest Block Hash:", response.LatestBlockHash)
		fmt.Println("Initial Height:", response.InitialHeight)
		fmt.Println("Markets Count:", response.MarketsCount)
		fmt.Println("Keep Last States:", response.KeepLastStates)
		return nil
	}
}

func marketsCMD(client *managerClient) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		var response []json.RawMessage
		if err := client.get(c.Context, "/markets", nil, &response); err != nil {
			return err
		}

		for _, market := range response {
			fmt.Println(string(market))
		}
		return nil
	}
}

func pruneBlocksCMD(client *managerClient) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		query := url.Values{}
		query.Set("from", strconv.Itoa(c.Int("from")))
		query.Set("to", strconv.Itoa(c.Int("to")))

		var response struct {
			Deleted int64 `json:"deleted"`
		}
		if err := client.get(c.Context, "/prune_blocks", query, &response); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	}
}

func dashboardCMD(client *managerClient) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		ctx, cancel := context.WithCancel(c.Context)
		defer cancel()

		var recv DashboardResponse
		if err := client.get(ctx, "/dashboard", nil, &recv); err != nil {
			return err
		}

		box := tui.NewVBox()
		ui, err := tui.New(tui.NewHBox(box, tui.NewSpacer()))
		if err != nil {
			return err
		}
		ui.SetKeybinding("Esc", func() { ui.Quit() })
		ui.SetKeybinding("q", func() { ui.Quit() })
		errCh := make(chan error)

		dashboard := updateDashboard(box, recv)

		go func() { errCh <- ui.Run() }()

		for {
			select {
			case <-c.Done():
				return c.Err()
			case err := <-errCh:
				return err
			case <-time.After(time.Second):
				if err := client.get(ctx, "/dashboard", nil, &recv); err != nil {
					return err
				}
				dashboard(recv)
				ui.Repaint()
			}
		}
	}
}

func updateDashboard(box *tui.Box, recv DashboardResponse) func(recv DashboardResponse) {
	table := tui.NewTable(0, 0)

	labelHeight := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Block Height"), labelHeight)
	labelBlockTime := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Latest Block Time"), labelBlockTime)
	labelDuration := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Block Processing Time"), labelDuration)
	labelMemoryUsage := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Memory Usage"), labelMemoryUsage)
	labelMarkets := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Markets"), labelMarkets)
	labelGraduated := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Graduated"), labelGraduated)
	labelPending := tui.NewLabel("")
	table.AppendRow(tui.NewLabel("Pending Handoffs"), labelPending)

	box.Append(tui.NewHBox(table, tui.NewSpacer()))
	box.Append(tui.NewSpacer())

	update := func(recv DashboardResponse) {
		labelHeight.SetText(strconv.FormatUint(recv.LatestHeight, 10))
		sec, frac := int64(recv.Timestamp), recv.Timestamp-float64(int64(recv.Timestamp))
		labelBlockTime.SetText(time.Unix(sec, int64(frac*1e9)).UTC().Format(time.RFC3339))
		labelDuration.SetText(fmt.Sprintf("%f sec", recv.Duration))
		labelMemoryUsage.SetText(fmt.Sprintf("%d MB", recv.MemoryUsage/1024/1024))
		labelMarkets.SetText(strconv.FormatUint(uint64(recv.MarketsCount), 10))
		labelGraduated.SetText(strconv.FormatUint(uint64(recv.GraduatedCount), 10))
		labelPending.SetText(strconv.FormatUint(uint64(recv.PendingHandoffs), 10))
	}
	update(recv)

	return update
}
