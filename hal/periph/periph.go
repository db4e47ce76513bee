// Package periph declares the register-level contracts the drivers program.
// A board supplies implementations: memory-mapped registers on silicon, the
// sim package on a host.
package periph

// UART interrupt enables and identification bits.
const (
	UARTIntRx uint8 = 1 << 0 // receive data available
	UARTIntTx uint8 = 1 << 1 // transmit holding register empty
)

// UART parity settings written to the line control register.
const (
	ParityNone uint8 = iota
	ParityEven
	ParityOdd
)

type UART interface {
	SetDivisor(high, low, fraction uint8)
	SetFormat(parity uint8)
	SetInterrupts(mask uint8)
	Interrupts() uint8
	// Pending returns the interrupt sources currently asserted.
	Pending() uint8
	ReadRx() (byte, bool)
	WriteTx(b byte) bool
}

// Timer interrupt register bits.
const TimerMatch0 uint32 = 1 << 0

type Timer interface {
	SetPrescaler(div uint32)
	SetMatch(value uint32)
	SetMatchInterrupt(on bool)
	SetRunning(on bool)
	Running() bool
	Flags() uint32
	ClearFlags(mask uint32)
}

type Watchdog interface {
	SelectClock(source uint8)
	SetTimeout(ticks uint32)
	SetWarningInterrupt(on bool)
	Start()
	Running() bool
	Feed()
	// Warned reports a latched warning flag; ClearWarning acknowledges it.
	Warned() bool
	ClearWarning()
}

// SSP is a synchronous serial port whose data path is fed by DMA.
type SSP interface {
	SetClockDivider(div uint32)
	SetMode(mode uint8)
	SetDMA(tx, rx bool)
	SetOverrunInterrupt(on bool)
	Overrun() bool
	ClearOverrun()
}

// Memory marks the memory side of a DMA request.
const Memory = -1

// DMARequest programs one channel. A SrcPeriph or DstPeriph of Memory means
// that side is a buffer; otherwise it is the multiplexer input index whose
// selected event feeds the channel.
type DMARequest struct {
	SrcPeriph int
	DstPeriph int
	Src       []byte
	Dst       []byte
	Size      int
	SrcInc    bool
	DstInc    bool
	Burst     uint8
	Width     uint8
}

type DMA interface {
	SetEnabled(on bool)
	Enabled() bool
	// Status returns the latched terminal-count and error bitmasks.
	Status() (terminal, errors uint32)
	Clear(terminal, errors uint32)
	Mux() uint32
	SetMux(v uint32)
	Start(ch int, req DMARequest)
	ChannelEnabled(ch int) bool
	Halt(ch int)
	Remaining(ch int) int
}
