/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package app

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/chirp-im/chirp/client"
	"github.com/chirp-im/chirp/keepalive"
	"github.com/chirp-im/chirp/log"
	"github.com/chirp-im/chirp/transport"
	"github.com/chirp-im/chirp/version"
	"github.com/pkg/errors"
)

var logoStr = []string{
	`         .__     .__                `,
	`    ____ |  |__  |__|_____________  `,
	`  _/ ___\|  |  \ |  \_  __ \____ \ `,
	`  \  \___|   Y  \|  ||  | \/|  |_> >`,
	`   \___  >___|  /|__||__|   |   __/ `,
	`       \/     \/            |__|    `,
}

const usageStr = `
Usage: chirp [options]

Client Options:
    -c, --config <file>    Configuration file path
Common Options:
    -h, --help             Show this message
    -v, --version          Show version
`

// Application encapsulates a chirp client application.
type Application struct {
	output     io.Writer
	args       []string
	cfg        Config
	registry   *keepalive.Registry
	dialer     *transport.Dialer
	conn       *client.Conn
	waitStopCh chan os.Signal
}

// New returns a runnable application given an output and a command line arguments array.
func New(output io.Writer, args []string) *Application {
	return &Application{
		output:     output,
		args:       args,
		waitStopCh: make(chan os.Signal, 1),
	}
}

// Run runs chirp application until either a stop signal is received
// or an error occurs.
func (a *Application) Run() error {
	if len(a.args) == 0 {
		return errors.New("empty command-line arguments")
	}
	var configFile string
	var showVersion, showUsage bool

	fs := flag.NewFlagSet("chirp", flag.ExitOnError)
	fs.SetOutput(a.output)

	fs.BoolVar(&showUsage, "help", false, "Show this message")
	fs.BoolVar(&showUsage, "h", false, "Show this message")
	fs.BoolVar(&showVersion, "version", false, "Print version information.")
	fs.BoolVar(&showVersion, "v", false, "Print version information.")
	fs.StringVar(&configFile, "config", "/etc/chirp/chirp.yml", "Configuration file path.")
	fs.StringVar(&configFile, "c", "/etc/chirp/chirp.yml", "Configuration file path.")
	fs.Usage = func() {
		for i := range logoStr {
			_, _ = fmt.Fprintf(a.output, "%s\n", logoStr[i])
		}
		_, _ = fmt.Fprintf(a.output, "%s\n", usageStr)
	}
	_ = fs.Parse(a.args[1:])

	// print usage
	if showUsage {
		fs.Usage()
		return nil
	}
	// print version
	if showVersion {
		_, _ = fmt.Fprintf(a.output, "chirp version: %v\n", version.ApplicationVersion)
		return nil
	}
	// load configuration
	if err := a.cfg.FromFile(configFile); err != nil {
		return err
	}
	if len(a.cfg.Service) == 0 {
		return errors.New("missing service name in configuration")
	}
	// create PID file
	if err := a.createPIDFile(a.cfg.PIDFile); err != nil {
		return err
	}
	// initialize logger
	log.Initialize(&a.cfg.Logger)

	// show chirp's fancy logo
	a.printLogo()

	// every new connection gets a keepalive manager attached
	a.registry = keepalive.NewRegistry(&a.cfg.Keepalive)
	a.registry.AutoAttach()

	a.dialer = transport.NewDialer(&a.cfg.Transport)

	tr, err := a.dialConnection()
	if err != nil {
		return err
	}
	a.conn = client.NewConn(a.cfg.Service, tr, &a.cfg.Writer)
	a.registry.ManagerFor(a.conn).AddPingFailedListener(a)

	log.Infof("connected to %s", a.cfg.Service)

	// ...wait for stop signal to shutdown
	sig := a.waitForStopSignal()
	log.Infof("received %s signal... shutting down...", sig.String())

	a.shutdown()
	return nil
}

// PingFailed satisfies keepalive.PingFailedListener interface. An
// unanswered probe is treated as a dead connection and a reconnection
// is attempted in the background.
func (a *Application) PingFailed() {
	log.Warnf("connection to %s timed out... reconnecting...", a.cfg.Service)
	go func() {
		tr, err := a.dialConnection()
		if err != nil {
			log.Errorf("reconnection failed: %v", err)
			return
		}
		a.conn.Resume(tr)
		log.Infof("reconnected to %s", a.cfg.Service)
	}()
}

func (a *Application) dialConnection() (transport.Transport, error) {
	if len(a.cfg.Address) > 0 {
		return a.dialer.DialAddress(a.cfg.Address)
	}
	return a.dialer.Dial(a.cfg.Service)
}

func (a *Application) createPIDFile(pidFile string) error {
	if len(pidFile) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(pidFile), os.ModePerm); err != nil {
		return err
	}
	file, err := os.Create(pidFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	currentPid := os.Getpid()
	if _, err := file.WriteString(strconv.FormatInt(int64(currentPid), 10)); err != nil {
		return err
	}
	return nil
}

func (a *Application) printLogo() {
	for i := range logoStr {
		log.Infof("%s", logoStr[i])
	}
	log.Infof("")
	log.Infof("chirp %v", version.ApplicationVersion)
}

func (a *Application) waitForStopSignal() os.Signal {
	signal.Notify(a.waitStopCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	return <-a.waitStopCh
}

func (a *Application) shutdown() {
	a.registry.Shutdown()
	a.conn.Close()

	// give the writer a chance to drain before the process exits
	time.Sleep(time.Millisecond * 250)
	log.Shutdown()
}
