package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/si6gma/laserturret/internal/config"
	"github.com/si6gma/laserturret/internal/imu"
	"github.com/si6gma/laserturret/internal/orientation"
)

// RunConsole subscribes to the gimbal telemetry topics and prints them
// until interrupted.
func RunConsole(cfg *config.Config) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	poseToken := client.Subscribe(cfg.TopicPose, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var p orientation.Pose
		if err := json.Unmarshal(msg.Payload(), &p); err != nil {
			log.Printf("console: pose unmarshal error: %v", err)
			return
		}
		fmt.Printf("[POSE ] ROLL=%6.2f PITCH=%6.2f YAW=%6.2f\n", p.Roll, p.Pitch, p.Yaw)
	})
	poseToken.Wait()
	if poseToken.Error() != nil {
		return poseToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicPose)

	imuToken := client.Subscribe(cfg.TopicIMU, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s imu.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: imu unmarshal error: %v", err)
			return
		}
		fmt.Printf("[IMU  ] ax=%7.3f ay=%7.3f az=%7.3f  gx=%7.4f gy=%7.4f gz=%7.4f  valid=%v\n",
			s.Accel[0], s.Accel[1], s.Accel[2], s.Gyro[0], s.Gyro[1], s.Gyro[2], s.Valid)
	})
	imuToken.Wait()
	if imuToken.Error() != nil {
		return imuToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicIMU)

	trackToken := client.Subscribe(cfg.TopicTracking, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var st Status
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			log.Printf("console: tracking unmarshal error: %v", err)
			return
		}
		fmt.Printf("[TRACK] pitch=%6.1f yaw=%6.1f detected=%v locked=%v conf=%.2f\n",
			st.Pitch, st.Yaw, st.SubjectDetected, st.LockedOn, st.Confidence)
	})
	trackToken.Wait()
	if trackToken.Error() != nil {
		return trackToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicTracking)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
