package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/flight_computer/internal/board"
	"github.com/relabs-tech/flight_computer/internal/config"
	"github.com/relabs-tech/flight_computer/internal/imu"
	"github.com/relabs-tech/flight_computer/internal/orientation"
	"github.com/relabs-tech/flight_computer/internal/receiver"
)

// selectPose converts the board's quaternion to Euler angles when a real
// estimator feeds it. Boards that only expose a resting placeholder fall
// back to the accel tilt estimate.
func selectPose(brd board.Board, accel [3]float64) orientation.Pose {
	if brd.HasFusion() {
		if q, ok := brd.Quaternion(); ok {
			return orientation.PoseFromQuaternion(q)
		}
	}
	return orientation.ComputePoseFromAccel(accel[0], accel[1], accel[2])
}

// RunFlightProducer samples the flight board and the receiver on a fixed
// tick and publishes IMU samples, normalized demands, and pose to MQTT.
func RunFlightProducer() error {
	log.Println("starting flight-computer producer")

	cfg := config.Get()

	// --- Open the flight board (IMU, motors, LED) ---
	brd, err := board.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open board: %w", err)
	}

	// --- Choose demand source (iBUS receiver vs mock) ---
	var src receiver.RawSource
	switch cfg.Receiver {
	case "ibus":
		ib, err := receiver.OpenIBus(cfg.ReceiverPort, cfg.ReceiverBaudRate)
		if err != nil {
			return fmt.Errorf("failed to open iBUS receiver: %w", err)
		}
		defer ib.Close()
		src = ib
		log.Printf("using iBUS receiver on %s", cfg.ReceiverPort)
	default:
		src = receiver.NewMockSource()
		log.Println("using mock demand source")
	}

	ctrl := receiver.NewController(src, receiver.Config{
		AxisMap:           cfg.AxisMap,
		ReversedVerticals: cfg.ReversedVerticals,
		SpringyThrottle:   cfg.SpringyThrottle,
		UseButtonForAux:   cfg.UseButtonForAux,
		ThrottleRate:      cfg.ThrottleRate,
	})

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	interval := time.Duration(cfg.SampleInterval) * time.Millisecond
	dt := interval.Seconds()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ledOn := false

	for t := range ticker.C {
		// 1) IMU sample
		var gyro [3]float64
		fresh := brd.ReadGyro(&gyro)
		accel := brd.Accelerometer()
		mag := brd.Magnetometer()

		sample := imu.Sample{
			Board: cfg.Board,
			Ax:    accel[0], Ay: accel[1], Az: accel[2],
			Gx: gyro[0], Gy: gyro[1], Gz: gyro[2],
			Mx: mag[0], My: mag[1], Mz: mag[2],
		}

		if fresh {
			if payload, err := json.Marshal(sample); err != nil {
				log.Printf("imu marshal error: %v", err)
			} else if token := client.Publish(cfg.TopicIMU, 0, true, payload); token.Wait() && token.Error() != nil {
				log.Printf("MQTT publish error (imu): %v", token.Error())
				continue
			}
		}

		// 2) Demands
		var raw [receiver.NumChannels]float64
		ctrl.Poll(dt, &raw)
		demands := imu.Demands{
			Throttle: raw[receiver.ChanThrottle],
			Roll:     raw[receiver.ChanRoll],
			Pitch:    raw[receiver.ChanPitch],
			Yaw:      raw[receiver.ChanYaw],
			Aux:      raw[receiver.ChanAux],
		}

		if payload, err := json.Marshal(demands); err != nil {
			log.Printf("demands marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicDemands, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (demands): %v", token.Error())
			continue
		}

		// 3) Pose
		pose := selectPose(brd, accel)

		if payload, err := json.Marshal(pose); err != nil {
			log.Printf("pose marshal error: %v", err)
		} else if token := client.Publish(cfg.TopicPose, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (pose): %v", token.Error())
			continue
		}

		// 4) Bench passthrough: map throttle [-1,+1] onto all motors
		if cfg.MotorPassthrough {
			value := (demands.Throttle + 1.0) / 2.0
			for i := 0; i < 4; i++ {
				brd.WriteMotor(i, value)
			}
		}

		// Heartbeat LED, toggled every tick
		ledOn = !ledOn
		brd.LedSet(ledOn)

		log.Printf("%s tick: fresh=%v gx=%.2f gy=%.2f gz=%.2f | thr=%.2f roll=%.2f pitch=%.2f yaw=%.2f aux=%.2f | pose R=%.2f P=%.2f Y=%.2f",
			t.Format(time.RFC3339),
			fresh, gyro[0], gyro[1], gyro[2],
			demands.Throttle, demands.Roll, demands.Pitch, demands.Yaw, demands.Aux,
			pose.Roll, pose.Pitch, pose.Yaw,
		)
	}
	return nil
}
