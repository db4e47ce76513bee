package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/shlex"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"devicehal-go/errcode"
	"devicehal-go/hal"
	"devicehal-go/hal/chip"
	"devicehal-go/hal/dma"
	"devicehal-go/hal/entity"
	"devicehal-go/hal/sim"
	"devicehal-go/hal/slot"
	"devicehal-go/hal/spi"
	"devicehal-go/hal/timer"
	"devicehal-go/hal/uart"
	"devicehal-go/hal/wdt"
	"devicehal-go/x/logx"
)

var errUsage = errors.New("usage")

// console drives one simulated chip from text commands.
type console struct {
	mu   sync.Mutex // out is written from interrupt context too
	out  io.Writer
	ctx  *hal.Context
	chip *sim.Chip
	stop context.CancelFunc
	bg   *errgroup.Group

	uarts  map[int]*uart.Serial
	timers map[int]*timer.BaseTimer
	buses  map[int]*spi.SPI
	chans  map[string]*dma.GpDma
	dog    *wdt.Wdt
}

func newConsole(v chip.Variant, out io.Writer) *console {
	ctx, c := sim.NewContext(v)
	run, stop := context.WithCancel(context.Background())
	bg, run := errgroup.WithContext(run)
	bg.Go(func() error {
		c.DMA.Run(run)
		return nil
	})
	return &console{
		out:    out,
		ctx:    ctx,
		chip:   c,
		stop:   stop,
		bg:     bg,
		uarts:  map[int]*uart.Serial{},
		timers: map[int]*timer.BaseTimer{},
		buses:  map[int]*spi.SPI{},
		chans:  map[string]*dma.GpDma{},
	}
}

// close tears down every open instance and stops the DMA engine.
func (c *console) close() {
	for _, s := range c.buses {
		entity.Deinit(s)
	}
	for _, d := range c.chans {
		entity.Deinit(d)
	}
	for _, u := range c.uarts {
		entity.Deinit(u)
	}
	for _, t := range c.timers {
		entity.Deinit(t)
	}
	if c.dog != nil {
		entity.Deinit(c.dog)
	}
	c.stop()
	c.bg.Wait()
}

type command struct {
	usage string
	run   func(c *console, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":    {"help", (*console).help},
		"classes": {"classes", (*console).classes},
		"slots":   {"slots", (*console).slots},
		"irqs":    {"irqs", (*console).irqs},
		"mux":     {"mux", (*console).mux},
		"log":     {"log debug|info|warn|error", (*console).log},
		"uart":    {"uart open N RATE | write N TEXT | inject N TEXT | read N | wire N | close N", (*console).uart},
		"timer":   {"timer open N HZ TICKS | start N | stop N | advance N CYCLES | close N", (*console).timer},
		"dma":     {"dma open NAME CH m2m|m2p|p2m [EVENT] | copy NAME TEXT | start NAME | status NAME | close NAME", (*console).dma},
		"spi":     {"spi open N RATE TXDMA RXDMA | xfer N HEX | close N", (*console).spi},
		"wdt":     {"wdt open irc|wdtosc MS | feed | advance TICKS | close", (*console).wdt},
	}
}

// exec runs one command line. Blank lines and # comments are ignored.
func (c *console) exec(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	args, err := shlex.Split(line)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	if err := cmd.run(c, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return fmt.Errorf("usage: %s", cmd.usage)
		}
		return err
	}
	return nil
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) help([]string) error {
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	slices.Sort(names)
	for _, n := range names {
		c.printf("  %s\n", commands[n].usage)
	}
	return nil
}

func (c *console) classes([]string) error {
	for _, d := range entity.Classes() {
		kind := "concrete"
		if d.Abstract() {
			kind = "abstract"
		}
		c.printf("%-18s %s\n", d.ClassName(), kind)
	}
	return nil
}

func (c *console) slots([]string) error {
	tables := []*slot.Table{c.ctx.UART.Table, c.ctx.Timer.Table, c.ctx.SSP.Table, c.ctx.WDT.Table, dma.For(c.ctx).Slots()}
	for _, t := range tables {
		var b strings.Builder
		for _, used := range t.Occupied() {
			if used {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		c.printf("%-6s %s\n", t.Name(), b.String())
	}
	return nil
}

func (c *console) irqs([]string) error {
	for _, s := range c.ctx.IRQ.Stats() {
		if s.Name == "" {
			continue
		}
		c.printf("%3d %-8s enabled=%-5v prio=%-3d taken=%d spurious=%d\n",
			s.IRQ, s.Name, s.Enabled, s.Priority, s.Taken, s.Spurious)
	}
	return nil
}

func (c *console) mux([]string) error {
	h := dma.For(c.ctx)
	c.printf("loads %v attached %d register %#08x\n", h.Mux().Loads(), h.Attached(), h.Hardware().Mux())
	return nil
}

func (c *console) log(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(args[0])); err != nil {
		return err
	}
	logx.SetLevel(l)
	return nil
}

func (c *console) uart(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	switch args[0] {
	case "open":
		if len(args) != 3 {
			return errUsage
		}
		rate, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return errUsage
		}
		s, err := entity.Init(uart.Class, uart.Config{Context: c.ctx, Channel: n, Rate: uint32(rate)})
		if err != nil {
			return err
		}
		c.uarts[n] = s
		return nil
	}
	s, ok := c.uarts[n]
	if !ok {
		return fmt.Errorf("uart%d not open", n)
	}
	switch args[0] {
	case "write":
		_, err := s.Write([]byte(strings.Join(args[2:], " ")))
		return err
	case "inject":
		c.chip.UART[n].Inject([]byte(strings.Join(args[2:], " ")))
	case "read":
		buf := make([]byte, 256)
		k, _ := s.Read(buf)
		c.printf("%q\n", buf[:k])
	case "wire":
		c.printf("%q\n", c.chip.UART[n].Wire())
	case "close":
		entity.Deinit(s)
		delete(c.uarts, n)
	default:
		return errUsage
	}
	return nil
}

func (c *console) timer(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	if args[0] == "open" {
		if len(args) != 4 {
			return errUsage
		}
		hz, err1 := strconv.ParseUint(args[2], 10, 32)
		ticks, err2 := strconv.ParseUint(args[3], 10, 32)
		if err1 != nil || err2 != nil {
			return errUsage
		}
		t, err := entity.Init(timer.Class, timer.Config{Context: c.ctx, Channel: n, Frequency: uint32(hz), Overflow: uint32(ticks)})
		if err != nil {
			return err
		}
		t.SetCallback(func() { c.printf("timer%d overflow\n", n) })
		c.timers[n] = t
		return nil
	}
	t, ok := c.timers[n]
	if !ok {
		return fmt.Errorf("timer%d not open", n)
	}
	switch args[0] {
	case "start":
		t.SetEnabled(true)
	case "stop":
		t.SetEnabled(false)
	case "advance":
		if len(args) != 3 {
			return errUsage
		}
		cycles, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return errUsage
		}
		c.chip.Timer[n].Advance(uint32(cycles))
	case "close":
		entity.Deinit(t)
		delete(c.timers, n)
	default:
		return errUsage
	}
	return nil
}

func (c *console) dma(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	name := args[1]
	if args[0] == "open" {
		if len(args) < 4 {
			return errUsage
		}
		ch, err := strconv.Atoi(args[2])
		if err != nil {
			return errUsage
		}
		kind, ok := dma.ParseKind(args[3])
		if !ok {
			return errUsage
		}
		cfg := dma.Config{Context: c.ctx, Channel: ch, Kind: kind, SrcIncrement: true, DstIncrement: true}
		if kind != dma.MemToMem {
			if len(args) != 5 {
				return errUsage
			}
			if cfg.Event, ok = chip.ParseEvent(args[4]); !ok {
				return fmt.Errorf("unknown event %q", args[4])
			}
		}
		d, err := openChannel(cfg)
		if err != nil {
			return err
		}
		d.SetCallback(func() { c.printf("dma %s done: %v\n", name, errcode.Of(d.Status())) })
		c.chans[name] = d
		return nil
	}
	d, ok := c.chans[name]
	if !ok {
		return fmt.Errorf("dma %s not open", name)
	}
	switch args[0] {
	case "copy":
		src := []byte(strings.Join(args[2:], " "))
		dst := make([]byte, len(src))
		if err := d.Start(dst, src); err != nil {
			return err
		}
		if err := waitIdle(d, time.Second); err != nil {
			return err
		}
		c.printf("%q\n", dst)
	case "status":
		c.printf("%v remaining=%d\n", errcode.Of(d.Status()), d.Count())
	case "close":
		entity.Deinit(d)
		delete(c.chans, name)
	default:
		return errUsage
	}
	return nil
}

// openChannel turns a wiring fault into an error so a typo in a script
// does not end the session.
func openChannel(cfg dma.Config) (d *dma.GpDma, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*errcode.E)
			if !ok {
				panic(r)
			}
			err = e
		}
	}()
	return entity.Init(dma.Class, cfg)
}

func waitIdle(d *dma.GpDma, limit time.Duration) error {
	deadline := time.Now().Add(limit)
	for errors.Is(d.Status(), errcode.Busy) {
		if time.Now().After(deadline) {
			d.Stop()
			return &errcode.E{C: errcode.Timeout, Op: "dma.copy"}
		}
		time.Sleep(time.Millisecond)
	}
	return d.Status()
}

func (c *console) spi(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	if args[0] == "open" {
		if len(args) != 5 {
			return errUsage
		}
		rate, err1 := strconv.ParseUint(args[2], 10, 32)
		txd, err2 := strconv.Atoi(args[3])
		rxd, err3 := strconv.Atoi(args[4])
		if err1 != nil || err2 != nil || err3 != nil {
			return errUsage
		}
		s, err := entity.Init(spi.Class, spi.Config{Context: c.ctx, Channel: n, Rate: uint32(rate), TxDMA: txd, RxDMA: rxd})
		if err != nil {
			return err
		}
		c.buses[n] = s
		return nil
	}
	s, ok := c.buses[n]
	if !ok {
		return fmt.Errorf("spi%d not open", n)
	}
	switch args[0] {
	case "xfer":
		if len(args) != 3 {
			return errUsage
		}
		w, err := hex.DecodeString(args[2])
		if err != nil {
			return err
		}
		r := make([]byte, len(w))
		if err := s.Tx(w, r); err != nil {
			return err
		}
		c.printf("%s\n", hex.EncodeToString(r))
	case "close":
		entity.Deinit(s)
		delete(c.buses, n)
	default:
		return errUsage
	}
	return nil
}

func (c *console) wdt(args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	if args[0] == "open" {
		if len(args) != 3 {
			return errUsage
		}
		src := wdt.SourceIRC
		switch args[1] {
		case "irc":
		case "wdtosc":
			src = wdt.SourceWdtOsc
		default:
			return errUsage
		}
		ms, err := strconv.Atoi(args[2])
		if err != nil {
			return errUsage
		}
		w, err := entity.Init(wdt.Class, wdt.Config{Context: c.ctx, Source: src, Timeout: time.Duration(ms) * time.Millisecond})
		if err != nil {
			return err
		}
		w.SetCallback(func() { c.printf("wdt warning\n") })
		c.dog = w
		return nil
	}
	if c.dog == nil {
		return errors.New("wdt not open")
	}
	switch args[0] {
	case "feed":
		c.dog.Reload()
	case "advance":
		if len(args) != 2 {
			return errUsage
		}
		ticks, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return errUsage
		}
		c.chip.WDT.Advance(uint32(ticks))
		c.printf("resets=%d\n", c.chip.WDT.Resets())
	case "close":
		entity.Deinit(c.dog)
		c.dog = nil
	default:
		return errUsage
	}
	return nil
}
