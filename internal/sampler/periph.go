package sampler

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/gafc98/temperature-logger/internal/sensorlog"
)

// BusOptions selects the I2C bus and device addresses. A zero address
// leaves that device out.
type BusOptions struct {
	Bus          string
	InteriorAddr uint16
	ExteriorAddr uint16
	ADS1115Addr  uint16
}

// Devices holds the sensors opened on one I2C bus.
type Devices struct {
	Interior Environmental
	Exterior Environmental
	Analog   Thermometer

	bus   i2c.BusCloser
	halts []func() error
}

// OpenDevices initializes the host drivers and opens the configured sensors.
func OpenDevices(opts BusOptions) (*Devices, error) {
	if opts.InteriorAddr == 0 {
		return nil, errors.New("interior BME280 address is required")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(opts.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", opts.Bus, err)
	}
	d := &Devices{bus: bus}

	interior, err := bmxx80.NewI2C(bus, opts.InteriorAddr, &bmxx80.DefaultOpts)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("interior bme280 at %#x: %w", opts.InteriorAddr, err)
	}
	d.halts = append(d.halts, interior.Halt)
	d.Interior = bme280{dev: interior}

	if opts.ExteriorAddr != 0 {
		exterior, err := bmxx80.NewI2C(bus, opts.ExteriorAddr, &bmxx80.DefaultOpts)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("exterior bme280 at %#x: %w", opts.ExteriorAddr, err)
		}
		d.halts = append(d.halts, exterior.Halt)
		d.Exterior = bme280{dev: exterior}
	}

	if opts.ADS1115Addr != 0 {
		adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: opts.ADS1115Addr})
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("ads1115 at %#x: %w", opts.ADS1115Addr, err)
		}
		pin, err := adc.PinForChannel(ads1x15.Channel0, 5*physic.Volt, 8*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("ads1115 channel 0: %w", err)
		}
		d.halts = append(d.halts, pin.Halt, adc.Halt)
		d.Analog = probe{pin: pin}
	}
	return d, nil
}

// Close halts the devices and releases the bus.
func (d *Devices) Close() error {
	var errs []error
	for i := len(d.halts) - 1; i >= 0; i-- {
		errs = append(errs, d.halts[i]())
	}
	d.halts = nil
	if d.bus != nil {
		errs = append(errs, d.bus.Close())
		d.bus = nil
	}
	return errors.Join(errs...)
}

type bme280 struct {
	dev *bmxx80.Dev
}

func (b bme280) Sense() (sensorlog.Reading, error) {
	var env physic.Env
	if err := b.dev.Sense(&env); err != nil {
		return sensorlog.Reading{}, err
	}
	return readingFromEnv(env), nil
}

// readingFromEnv converts to degrees Celsius, percent and bar.
func readingFromEnv(env physic.Env) sensorlog.Reading {
	return sensorlog.Reading{
		Temperature: env.Temperature.Celsius(),
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
		Pressure:    float64(env.Pressure) / float64(100*physic.KiloPascal),
	}
}

type probe struct {
	pin ads1x15.PinADC
}

func (p probe) Temperature() (float64, error) {
	s, err := p.pin.Read()
	if err != nil {
		return 0, err
	}
	return probeTemperature(s), nil
}

// probeTemperature maps the 0..3.3V probe output onto -66.875..151.875 C.
func probeTemperature(s analog.Sample) float64 {
	v := float64(s.V) / float64(physic.Volt)
	return -66.875 + 218.75*v/3.3
}
