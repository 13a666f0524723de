package transport

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate is the screen's factory UART speed.
const DefaultBaudRate = 115200

// SerialConfig configures the UART link. Frames are 8N1 without flow control.
type SerialConfig struct {
	Port     string `yaml:"port" toml:"port"`
	BaudRate int    `yaml:"baud_rate" toml:"baud_rate"`
}

func (c SerialConfig) mode() *serial.Mode {
	baud := c.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// OpenSerial opens the serial port named in cfg.
func OpenSerial(cfg SerialConfig) (io.WriteCloser, error) {
	port, err := serial.Open(cfg.Port, cfg.mode())
	if err != nil {
		return nil, fmt.Errorf("transport: open serial %q: %w", cfg.Port, err)
	}
	return port, nil
}

// SerialPorts lists the serial ports present on the host.
func SerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: list serial ports: %w", err)
	}
	return ports, nil
}
