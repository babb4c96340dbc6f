package fits2plane

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"siphon/internal/services"
)

// Request describes one plane conversion: the plane identity, the observation
// document the tool reads and writes, the metadata files passed through from
// configuration, and the artifact URIs the plane covers.
type Request struct {
	Collection    string
	ObservationID string
	ProductID     string
	// InputPath names an existing observation document the tool should
	// update. Empty means the tool starts a new observation.
	InputPath  string
	OutputPath string
	// ConfigPath and DefaultPath are optional; when empty the corresponding
	// flag is omitted and the tool falls back to its built-in defaults.
	ConfigPath  string
	DefaultPath string
	OverridePath string
	URIs         []string
	// LocalPaths, when set, parallels URIs entry for entry so the tool
	// reads headers from disk instead of the store.
	LocalPaths []string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps fits2plane CLI interactions.
type Client struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a fits2plane client.
func New(binary string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "fits2plane", "new", "binary required", nil)
	}
	client := &Client{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Convert runs the tool for one plane, updating the observation document in
// place. Tool output is forwarded line by line to onOutput. A nonzero exit
// triggers one rerun with --debug appended so the log captures the tool's
// full diagnostics; the conversion fails either way.
func (c *Client) Convert(ctx context.Context, req Request, onOutput func(string)) error {
	if err := req.validate(); err != nil {
		return err
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := req.args()
	err := c.exec.Run(runCtx, c.binary, args, onOutput)
	if err == nil {
		return nil
	}
	if ctxErr := runCtx.Err(); ctxErr != nil {
		return services.Wrap(services.TransportMarker(ctxErr), "fits2plane", "convert", req.describe(), err)
	}

	if debugErr := c.exec.Run(runCtx, c.binary, append(args, "--debug"), onOutput); debugErr == nil && onOutput != nil {
		onOutput("fits2plane did not fail when rerun with --debug")
	}
	return services.Wrap(services.ErrExternalTool, "fits2plane", "convert", req.describe(), err)
}

func (r Request) validate() error {
	required := []struct {
		value string
		name  string
	}{
		{r.Collection, "collection"},
		{r.ObservationID, "observation id"},
		{r.ProductID, "product id"},
		{r.OutputPath, "output path"},
		{r.OverridePath, "override path"},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return services.Wrap(services.ErrValidation, "fits2plane", "convert", field.name+" required", nil)
		}
	}
	if len(r.URIs) == 0 {
		return services.Wrap(services.ErrValidation, "fits2plane", "convert", "at least one artifact uri required", nil)
	}
	if len(r.LocalPaths) > 0 && len(r.LocalPaths) != len(r.URIs) {
		return services.Wrap(services.ErrValidation, "fits2plane", "convert", "local paths must parallel artifact uris", nil)
	}
	return nil
}

func (r Request) args() []string {
	args := []string{
		"--collection=" + r.Collection,
		"--observationID=" + r.ObservationID,
		"--productID=" + r.ProductID,
	}
	if r.InputPath != "" {
		args = append(args, "--in="+r.InputPath)
	}
	args = append(args, "--out="+r.OutputPath)
	if r.ConfigPath != "" {
		args = append(args, "--config="+r.ConfigPath)
	}
	if r.DefaultPath != "" {
		args = append(args, "--default="+r.DefaultPath)
	}
	args = append(args,
		"--override="+r.OverridePath,
		"--uri="+strings.Join(r.URIs, ","),
	)
	if len(r.LocalPaths) > 0 {
		args = append(args, "--local="+strings.Join(r.LocalPaths, ","))
	}
	return args
}

func (r Request) describe() string {
	return r.Collection + "/" + r.ObservationID + "/" + r.ProductID
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	forward := func(line string) {
		if onOutput != nil {
			onOutput(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
