package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/si6gma/laserturret/internal/config"
	"github.com/si6gma/laserturret/internal/orientation"
)

// displayData holds the latest telemetry for the OLED.
type displayData struct {
	mu sync.RWMutex

	pose     orientation.Pose
	havePose bool

	status     Status
	haveStatus bool
}

// RunDisplay shows live pose and gimbal state on an SSD1306 OLED fed
// from the telemetry topics.
func RunDisplay(cfg *config.Config) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("display: periph host init: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("display: open I2C bus: %w", err)
	}
	defer bus.Close()

	// The driver talks to the panel's fixed 0x3C address.
	if cfg.DisplayI2CAddr != 0x3C {
		log.Printf("display: configured address 0x%02X ignored, driver uses 0x3C", cfg.DisplayI2CAddr)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("display: initialize: %w", err)
	}
	log.Println("display: initialized")

	if err := showSplash(dev); err != nil {
		log.Printf("display: splash error: %v", err)
	}

	data := &displayData{}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("display: pose unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.pose = p
		data.havePose = true
		data.mu.Unlock()
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}

	trackToken := client.Subscribe(cfg.TopicTracking, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("display: tracking unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.status = st
		data.haveStatus = true
		data.mu.Unlock()
	})
	trackToken.Wait()
	if trackToken.Error() != nil {
		return trackToken.Error()
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		pose, havePose := data.pose, data.havePose
		status, haveStatus := data.status, data.haveStatus
		data.mu.RUnlock()

		if err := updateDisplay(dev, pose, havePose, status, haveStatus); err != nil {
			log.Printf("display: update error: %v", err)
		}
	}
	return nil
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func updateDisplay(dev *ssd1306.Dev, pose orientation.Pose, havePose bool, status Status, haveStatus bool) error {
	img, drawer := newCanvas()

	if !havePose && !haveStatus {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Gimbal"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(fmt.Sprintf("R:%6.1f P:%6.1f", pose.Roll, pose.Pitch)))

	drawer.Dot = fixed.P(0, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("Servo %5.1f/%5.1f", status.Pitch, status.Yaw)))

	mode := "AUTO"
	if status.Manual {
		mode = "MANUAL"
	}
	drawer.Dot = fixed.P(0, 39)
	drawer.DrawBytes([]byte(fmt.Sprintf("Mode: %s", mode)))

	track := "no subject"
	if status.LockedOn {
		track = "LOCKED"
	} else if status.SubjectDetected {
		track = "tracking"
	}
	drawer.Dot = fixed.P(0, 52)
	drawer.DrawBytes([]byte(track))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img, drawer := newCanvas()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Laser Turret"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Gimbal Control"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
