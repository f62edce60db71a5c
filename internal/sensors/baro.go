// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/fusion_computer/internal/config"
	"github.com/relabs-tech/fusion_computer/internal/env"
)

var (
	baroDev     *bmxx80.Dev
	baroOnce    sync.Once
	baroInitErr error
)

// initBaro initializes the BMP sensor once
func initBaro() {
	baroOnce.Do(func() {
		cfg := config.Get()

		// Initialize periph host
		if _, err := host.Init(); err != nil {
			baroInitErr = fmt.Errorf("periph host init: %w", err)
			return
		}

		bus, err := spireg.Open(cfg.BaroSPIDevice)
		if err != nil {
			baroInitErr = fmt.Errorf("baro SPI open: %w", err)
			return
		}

		baroDev, err = bmxx80.NewSPI(bus, &bmxx80.DefaultOpts)
		if err != nil {
			baroInitErr = fmt.Errorf("baro init: %w", err)
			return
		}
	})
}

// ReadBaro reads the BMP sensor (temp + pressure) and stamps the sample
// with the read time.
func ReadBaro() (env.Sample, error) {
	initBaro()
	if baroInitErr != nil {
		return env.Sample{}, baroInitErr
	}

	var e physic.Env
	if err := baroDev.Sense(&e); err != nil {
		return env.Sample{}, fmt.Errorf("baro sense: %w", err)
	}

	return env.Sample{
		Time:        float64(time.Now().UnixNano()) / 1e9,
		Temperature: e.Temperature.Celsius(),
		Pressure:    float64(e.Pressure) / float64(physic.Pascal),
	}, nil
}
