package chip

// LPC43xx: sixteen DMA mux inputs, four selectable events each.
var LPC43xx = Variant{
	Name:        "lpc43xx",
	CoreClockHz: 204_000_000,
	IRCHz:       12_000_000,
	WdtOscHz:    12_000_000,

	UARTs:       4,
	Timers:      4,
	SSPs:        2,
	DMAChannels: 8,

	MuxFieldWidth: 2,
	MuxMenus: [][]Event{
		{SPIFI, SCTOut2, SGPIO14, Mat3_1},
		{Mat0_0, UART0TX, EventNone, EventNone},
		{Mat0_1, UART0RX, EventNone, EventNone},
		{Mat1_0, UART1TX, I2S1Req1, SSP1TX},
		{Mat1_1, UART1RX, I2S1Req2, SSP1RX},
		{Mat2_0, UART2TX, SSP1TX, SGPIO15},
		{Mat2_1, UART2RX, SSP1RX, SGPIO14},
		{Mat3_0, UART3TX, SCTReq0, ADCHSWrite},
		{Mat3_1, UART3RX, SCTReq1, ADCHSRead},
		{SSP0RX, I2S0Req1, SCTReq1, EventNone},
		{SSP0TX, I2S0Req2, SCTReq0, EventNone},
		{SSP1RX, SGPIO14, UART0TX, EventNone},
		{SSP1TX, SGPIO15, UART0RX, EventNone},
		{ADC0, EventNone, SSP1RX, UART3RX},
		{ADC1, EventNone, SSP1TX, UART3TX},
		{DAC, SCTOut3, SGPIO15, Mat3_0},
	},

	IRQ: IRQMap{
		Count: 53,
		DMA:   2,
		Timer: []int{12, 13, 14, 15},
		SSP:   []int{22, 23},
		UART:  []int{24, 25, 26, 27},
		WDT:   49,
	},
}
