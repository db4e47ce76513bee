package chip

// LPC17xx: inputs 8..15 choose between a UART and a timer match request
// with a one-bit select field; inputs 0..7 are fixed.
var LPC17xx = Variant{
	Name:        "lpc17xx",
	CoreClockHz: 100_000_000,
	IRCHz:       4_000_000,
	WdtOscHz:    500_000,

	UARTs:       4,
	Timers:      4,
	SSPs:        2,
	DMAChannels: 8,

	MuxFieldWidth: 1,
	MuxMenus: [][]Event{
		{SSP0TX},
		{SSP0RX},
		{SSP1TX},
		{SSP1RX},
		{ADC0},
		{I2S0Req1},
		{I2S0Req2},
		{DAC},
		{UART0TX, Mat0_0},
		{UART0RX, Mat0_1},
		{UART1TX, Mat1_0},
		{UART1RX, Mat1_1},
		{UART2TX, Mat2_0},
		{UART2RX, Mat2_1},
		{UART3TX, Mat3_0},
		{UART3RX, Mat3_1},
	},

	IRQ: IRQMap{
		Count: 35,
		WDT:   0,
		Timer: []int{1, 2, 3, 4},
		UART:  []int{5, 6, 7, 8},
		SSP:   []int{14, 15},
		DMA:   26,
	},
}
