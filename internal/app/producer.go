package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/si6gma/laserturret/internal/config"
	"github.com/si6gma/laserturret/internal/imu"
	"github.com/si6gma/laserturret/internal/orientation"
)

// RunTelemetry publishes pose, raw IMU and controller status to MQTT
// until stop is closed. Subscribing front-ends (console, display, web
// dashboards) consume these topics.
func RunTelemetry(cfg *config.Config, ctrl *Controller, sensor *imu.Sensor, stop <-chan struct{}) error {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDGimbal)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Printf("telemetry: connected to MQTT broker at %s", cfg.MQTTBroker)

	ticker := time.NewTicker(time.Duration(cfg.TelemetryInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			log.Println("telemetry: stopping")
			return nil
		case t := <-ticker.C:
			sample := sensor.GetReading()
			roll, pitch, yaw := sensor.GetAngles()
			pose := orientation.Pose{Roll: roll, Pitch: pitch, Yaw: yaw}
			status := ctrl.Status()

			publish(client, cfg.TopicPose, pose)
			publish(client, cfg.TopicIMU, sample)
			publish(client, cfg.TopicServo, struct {
				Pitch float64 `json:"pitch"`
				Yaw   float64 `json:"yaw"`
			}{status.Pitch, status.Yaw})
			publish(client, cfg.TopicTracking, status)

			log.Printf("%s tick: pose R=%.2f P=%.2f Y=%.2f | servo pitch=%.1f yaw=%.1f | detected=%v locked=%v",
				t.Format(time.RFC3339),
				pose.Roll, pose.Pitch, pose.Yaw,
				status.Pitch, status.Yaw,
				status.SubjectDetected, status.LockedOn,
			)
		}
	}
}

func publish(client mqtt.Client, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("telemetry: marshal error (%s): %v", topic, err)
		return
	}
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("telemetry: publish error (%s): %v", topic, token.Error())
	}
}
