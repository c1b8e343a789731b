package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all gimbal configuration values.
type Config struct {
	// Tracking PID
	TrackKp            float64
	TrackKi            float64
	TrackKd            float64
	TrackIntegralLimit float64
	TrackOutputLimit   float64

	// Stabilizer
	StabilizerGain      float64
	StabilizerSmoothing float64
	FilterAlpha         float64 // complementary filter gyro weight
	TrackingWeight      float64 // blend weight, 1.0 = pure tracking
	MaxJerk             float64 // degrees/s, per-axis slew bound

	// Auto-framing
	FramerSmoothing float64
	Composition     string // "center" or "rule_of_thirds"
	HeadroomRatio   float64
	LostFrameLimit  int
	LockOnSeconds   float64

	// Servo ranges (degrees)
	PitchMin float64
	PitchMax float64
	YawMin   float64
	YawMax   float64

	// Servo transport
	ServoSerialPort string
	ServoSerialBaud int
	ServoPWMAddr    uint16 // PCA9685 I2C address; 0 selects the serial link
	PitchChannel    int
	YawChannel      int

	// IMU
	IMUSampleRate   int // Hz
	IMUAccelAlpha   float64
	IMUGyroAlpha    float64
	IMUCalibSamples int
	IMUSPIDevice    string
	IMUCSPin        string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange    byte
	UseSimulatedIMU bool
	ControlRate     int // Hz, controller loop rate

	// MQTT
	MQTTBroker          string
	MQTTClientIDGimbal  string
	MQTTClientIDConsole string
	MQTTClientIDDisplay string
	TopicPose           string
	TopicIMU            string
	TopicServo          string
	TopicTracking       string

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	// Telemetry
	TelemetryInterval int // milliseconds
}

// Load reads the configuration file and returns a Config struct.
// The returned instance is passed explicitly to the components that
// need it; there is no package-level config.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a Config with the tuning values the gimbal ships with.
// A config file only needs to override what differs from these.
func Default() *Config {
	return &Config{
		TrackKp:            0.5,
		TrackKi:            0.1,
		TrackKd:            0.05,
		TrackIntegralLimit: 10.0,
		TrackOutputLimit:   30.0,

		StabilizerGain:      0.7,
		StabilizerSmoothing: 0.3,
		FilterAlpha:         0.98,
		TrackingWeight:      0.7,
		MaxJerk:             100.0,

		FramerSmoothing: 0.15,
		Composition:     "center",
		HeadroomRatio:   0.15,
		LostFrameLimit:  30,
		LockOnSeconds:   3.0,

		PitchMin: 0,
		PitchMax: 180,
		YawMin:   0,
		YawMax:   180,

		ServoSerialPort: "/dev/ttyACM0",
		ServoSerialBaud: 9600,
		PitchChannel:    0,
		YawChannel:      1,

		IMUSampleRate:   100,
		IMUAccelAlpha:   0.2,
		IMUGyroAlpha:    0.3,
		IMUCalibSamples: 500,
		IMUSPIDevice:    "/dev/spidev0.0",
		IMUCSPin:        "8",
		IMUAccelRange:   0,
		IMUGyroRange:    1,
		ControlRate:     30,

		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDGimbal:  "gimbal-producer",
		MQTTClientIDConsole: "gimbal-console-subscriber",
		MQTTClientIDDisplay: "gimbal-display-subscriber",
		TopicPose:           "gimbal/pose",
		TopicIMU:            "gimbal/imu",
		TopicServo:          "gimbal/servo",
		TopicTracking:       "gimbal/tracking",

		WebServerPort: 8080,

		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,

		TelemetryInterval: 100,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Tracking PID
	case "TRACK_KP":
		return setFloat(&c.TrackKp, key, value)
	case "TRACK_KI":
		return setFloat(&c.TrackKi, key, value)
	case "TRACK_KD":
		return setFloat(&c.TrackKd, key, value)
	case "TRACK_INTEGRAL_LIMIT":
		return setFloat(&c.TrackIntegralLimit, key, value)
	case "TRACK_OUTPUT_LIMIT":
		return setFloat(&c.TrackOutputLimit, key, value)

	// Stabilizer
	case "STABILIZER_GAIN":
		return setFloat(&c.StabilizerGain, key, value)
	case "STABILIZER_SMOOTHING":
		return setUnitFloat(&c.StabilizerSmoothing, key, value)
	case "FILTER_ALPHA":
		return setUnitFloat(&c.FilterAlpha, key, value)
	case "TRACKING_WEIGHT":
		return setUnitFloat(&c.TrackingWeight, key, value)
	case "MAX_JERK":
		return setFloat(&c.MaxJerk, key, value)

	// Auto-framing
	case "FRAMER_SMOOTHING":
		return setUnitFloat(&c.FramerSmoothing, key, value)
	case "COMPOSITION":
		if value != "center" && value != "rule_of_thirds" {
			return fmt.Errorf("COMPOSITION must be \"center\" or \"rule_of_thirds\", got %q", value)
		}
		c.Composition = value
	case "HEADROOM_RATIO":
		return setUnitFloat(&c.HeadroomRatio, key, value)
	case "LOST_FRAME_LIMIT":
		return setInt(&c.LostFrameLimit, key, value)
	case "LOCK_ON_SECONDS":
		return setFloat(&c.LockOnSeconds, key, value)

	// Servo ranges
	case "PITCH_MIN":
		return setFloat(&c.PitchMin, key, value)
	case "PITCH_MAX":
		return setFloat(&c.PitchMax, key, value)
	case "YAW_MIN":
		return setFloat(&c.YawMin, key, value)
	case "YAW_MAX":
		return setFloat(&c.YawMax, key, value)

	// Servo transport
	case "SERVO_SERIAL_PORT":
		c.ServoSerialPort = value
	case "SERVO_SERIAL_BAUD":
		return setInt(&c.ServoSerialBaud, key, value)
	case "SERVO_PWM_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid SERVO_PWM_ADDR %q: %w", value, err)
		}
		c.ServoPWMAddr = uint16(addr)
	case "PITCH_CHANNEL":
		return setInt(&c.PitchChannel, key, value)
	case "YAW_CHANNEL":
		return setInt(&c.YawChannel, key, value)

	// IMU
	case "IMU_SAMPLE_RATE":
		return setInt(&c.IMUSampleRate, key, value)
	case "IMU_ACCEL_ALPHA":
		return setUnitFloat(&c.IMUAccelAlpha, key, value)
	case "IMU_GYRO_ALPHA":
		return setUnitFloat(&c.IMUGyroAlpha, key, value)
	case "IMU_CALIB_SAMPLES":
		return setInt(&c.IMUCalibSamples, key, value)
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_ACCEL_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_RANGE":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_RANGE %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)
	case "USE_SIMULATED_IMU":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid USE_SIMULATED_IMU %q: %w", value, err)
		}
		c.UseSimulatedIMU = b
	case "CONTROL_RATE":
		return setInt(&c.ControlRate, key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_GIMBAL":
		c.MQTTClientIDGimbal = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_SERVO":
		c.TopicServo = value
	case "TOPIC_TRACKING":
		c.TopicTracking = value

	// Web Server
	case "WEB_SERVER_PORT":
		return setInt(&c.WebServerPort, key, value)

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		return setInt(&c.DisplayUpdateInterval, key, value)

	// Telemetry
	case "TELEMETRY_INTERVAL":
		return setInt(&c.TelemetryInterval, key, value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

func setFloat(dst *float64, key, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = f
	return nil
}

// setUnitFloat parses a float that must lie in [0, 1].
func setUnitFloat(dst *float64, key, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if f < 0 || f > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %g", key, f)
	}
	*dst = f
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = n
	return nil
}

// validate checks that the loaded values are internally consistent.
func (c *Config) validate() error {
	if c.PitchMin >= c.PitchMax {
		return fmt.Errorf("PITCH_MIN (%g) must be below PITCH_MAX (%g)", c.PitchMin, c.PitchMax)
	}
	if c.YawMin >= c.YawMax {
		return fmt.Errorf("YAW_MIN (%g) must be below YAW_MAX (%g)", c.YawMin, c.YawMax)
	}
	if c.PitchMin < 0 || c.PitchMax > 180 {
		return fmt.Errorf("pitch range [%g, %g] must stay within [0, 180]", c.PitchMin, c.PitchMax)
	}
	if c.YawMin < 0 || c.YawMax > 180 {
		return fmt.Errorf("yaw range [%g, %g] must stay within [0, 180]", c.YawMin, c.YawMax)
	}
	if c.IMUSampleRate <= 0 {
		return fmt.Errorf("IMU_SAMPLE_RATE must be positive, got %d", c.IMUSampleRate)
	}
	if c.ControlRate <= 0 {
		return fmt.Errorf("CONTROL_RATE must be positive, got %d", c.ControlRate)
	}
	if c.IMUCalibSamples <= 0 {
		return fmt.Errorf("IMU_CALIB_SAMPLES must be positive, got %d", c.IMUCalibSamples)
	}
	if c.LostFrameLimit <= 0 {
		return fmt.Errorf("LOST_FRAME_LIMIT must be positive, got %d", c.LostFrameLimit)
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	return nil
}
