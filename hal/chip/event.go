package chip

// Event is a peripheral DMA request line.
type Event uint8

const (
	EventNone Event = iota // unused entry in a mux menu

	SPIFI
	SCTOut2
	SCTOut3
	SCTReq0
	SCTReq1
	SGPIO14
	SGPIO15
	Mat0_0
	Mat0_1
	Mat1_0
	Mat1_1
	Mat2_0
	Mat2_1
	Mat3_0
	Mat3_1
	UART0TX
	UART0RX
	UART1TX
	UART1RX
	UART2TX
	UART2RX
	UART3TX
	UART3RX
	SSP0TX
	SSP0RX
	SSP1TX
	SSP1RX
	I2S0Req1
	I2S0Req2
	I2S1Req1
	I2S1Req2
	ADC0
	ADC1
	ADCHSRead
	ADCHSWrite
	DAC

	eventCount
)

var eventNames = [eventCount]string{
	EventNone:  "none",
	SPIFI:      "spifi",
	SCTOut2:    "sct_out2",
	SCTOut3:    "sct_out3",
	SCTReq0:    "sct_req0",
	SCTReq1:    "sct_req1",
	SGPIO14:    "sgpio14",
	SGPIO15:    "sgpio15",
	Mat0_0:     "mat0_0",
	Mat0_1:     "mat0_1",
	Mat1_0:     "mat1_0",
	Mat1_1:     "mat1_1",
	Mat2_0:     "mat2_0",
	Mat2_1:     "mat2_1",
	Mat3_0:     "mat3_0",
	Mat3_1:     "mat3_1",
	UART0TX:    "uart0_tx",
	UART0RX:    "uart0_rx",
	UART1TX:    "uart1_tx",
	UART1RX:    "uart1_rx",
	UART2TX:    "uart2_tx",
	UART2RX:    "uart2_rx",
	UART3TX:    "uart3_tx",
	UART3RX:    "uart3_rx",
	SSP0TX:     "ssp0_tx",
	SSP0RX:     "ssp0_rx",
	SSP1TX:     "ssp1_tx",
	SSP1RX:     "ssp1_rx",
	I2S0Req1:   "i2s0_req1",
	I2S0Req2:   "i2s0_req2",
	I2S1Req1:   "i2s1_req1",
	I2S1Req2:   "i2s1_req2",
	ADC0:       "adc0",
	ADC1:       "adc1",
	ADCHSRead:  "adchs_read",
	ADCHSWrite: "adchs_write",
	DAC:        "dac",
}

func (e Event) String() string {
	if e < eventCount {
		return eventNames[e]
	}
	return "event?"
}

// ParseEvent maps a name such as "uart0_tx" back to its Event.
func ParseEvent(s string) (Event, bool) {
	for i, n := range eventNames {
		if n == s && Event(i) != EventNone {
			return Event(i), true
		}
	}
	return EventNone, false
}

// UARTEvents returns the transmit and receive request lines of UART n.
func UARTEvents(n int) (tx, rx Event) {
	return UART0TX + Event(2*n), UART0RX + Event(2*n)
}

// SSPEvents returns the transmit and receive request lines of SSP n.
func SSPEvents(n int) (tx, rx Event) {
	return SSP0TX + Event(2*n), SSP0RX + Event(2*n)
}
