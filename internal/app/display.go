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

	"github.com/relabs-tech/flight_computer/internal/config"
	"github.com/relabs-tech/flight_computer/internal/imu"
	"github.com/relabs-tech/flight_computer/internal/orientation"
)

// displayData holds the latest data for the status display.
type displayData struct {
	mu sync.RWMutex

	pose     orientation.Pose
	havePose bool

	demands     imu.Demands
	haveDemands bool
}

// RunDisplay drives a small SSD1306 status panel showing the latest
// pose and demand frame from MQTT.
func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	// The ssd1306 driver always talks to the default 0x3C address.
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: initialized")

	if err := showSplash(dev); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &displayData{}

	// Connect to MQTT
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
	log.Printf("display: subscribed to %s", cfg.TopicPose)

	demandsToken := client.Subscribe(cfg.TopicDemands, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var d imu.Demands
		if err := json.Unmarshal(msg.Payload(), &d); err != nil {
			log.Printf("display: demands unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.demands = d
		data.haveDemands = true
		data.mu.Unlock()
	})
	demandsToken.Wait()
	if demandsToken.Error() != nil {
		return demandsToken.Error()
	}
	log.Printf("display: subscribed to %s", cfg.TopicDemands)

	// Display update loop
	interval := cfg.DisplayUpdateInterval
	if interval <= 0 {
		interval = 250
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		pose := data.pose
		havePose := data.havePose
		demands := data.demands
		haveDemands := data.haveDemands
		data.mu.RUnlock()

		if err := updateStatusDisplay(dev, pose, havePose, demands, haveDemands); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func blankImage() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	for i := 0; i < 1024; i++ {
		img.Pix[i] = 0
	}
	return img
}

func newDrawer(img *image1bit.VerticalLSB) *font.Drawer {
	return &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
}

func updateStatusDisplay(dev *ssd1306.Dev, pose orientation.Pose, havePose bool, demands imu.Demands, haveDemands bool) error {
	img := blankImage()
	drawer := newDrawer(img)

	if !havePose && !haveDemands {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte("Flight Computer"))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte("Waiting..."))
		return dev.Draw(dev.Bounds(), img, image.Point{})
	}

	if havePose {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawBytes([]byte(fmt.Sprintf("R:%6.1f P:%6.1f", pose.Roll, pose.Pitch)))
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawBytes([]byte(fmt.Sprintf("Y:%6.1f", pose.Yaw)))
	}

	if haveDemands {
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawBytes([]byte(fmt.Sprintf("T:%5.2f A:%5.2f", demands.Throttle, demands.Aux)))
		drawer.Dot = fixed.P(0, 52)
		drawer.DrawBytes([]byte(fmt.Sprintf("r:%5.2f p:%5.2f", demands.Roll, demands.Pitch)))
	}

	return dev.Draw(dev.Bounds(), img, image.Point{})
}

func showSplash(dev *ssd1306.Dev) error {
	img := blankImage()
	drawer := newDrawer(img)

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Flight Pi"))

	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Arming soon"))

	return dev.Draw(dev.Bounds(), img, image.Point{})
}
