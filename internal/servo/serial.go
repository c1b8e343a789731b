// Copyright (c) 2026 Si6gma
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package servo

import (
	"fmt"
	"io"
	"log"
	"math"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
)

// serialActuator drives an Arduino servo sketch over a serial link.
// The wire protocol is one "pitch,yaw\n" line per command, whole
// degrees.
type serialActuator struct {
	port io.ReadWriteCloser
}

// NewSerialActuator opens the serial port and waits out the Arduino
// reset that opening the port triggers.
func NewSerialActuator(portName string, baudRate int) (Actuator, error) {
	opts := serial.OpenOptions{
		PortName:        portName,
		BaudRate:        uint(baudRate),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("servo: open serial port %s: %w", portName, err)
	}

	// Opening the port resets the Arduino; give it time to boot.
	time.Sleep(2 * time.Second)
	log.Printf("servo: serial actuator on %s at %d baud", portName, baudRate)

	return &serialActuator{port: port}, nil
}

func (a *serialActuator) Move(pitch, yaw float64) error {
	_, err := fmt.Fprintf(a.port, "%d,%d\n", int(math.Round(pitch)), int(math.Round(yaw)))
	if err != nil {
		return fmt.Errorf("servo: serial write: %w", err)
	}
	return nil
}

func (a *serialActuator) Close() error {
	return a.port.Close()
}
