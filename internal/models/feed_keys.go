package models

// Feed keys match the channels published by the ESP32 firmware. The set is
// closed: any key outside it is rejected at the HTTP boundary before a remote
// call is made.
const (
	KeySoundSensor         = "sound-sensor"
	KeyGasSensor           = "gas-sensor"
	KeyTemperature         = "temperature"
	KeyHumidity            = "humidity"
	KeyMotionDetector      = "motion-detector"
	KeyUltrasonicDistance  = "ultrasonic-distance"
	KeyUltrasonicDistance2 = "ultrasonic-distance2"
	KeyNfcUID              = "nfc-uid"
	KeyServoAngle          = "servo-angle"
)

// FeedDefaults carries the metadata applied when a feed is created without
// explicit name/description/unit.
type FeedDefaults struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
}

// DefaultFeeds is the bootstrap table. Order matters: bootstrap creates
// missing feeds in this order.
var DefaultFeeds = []FeedDefaults{
	{Key: KeySoundSensor, Name: "Sound Sensor", Description: "Noise level picked up by the microphone", Unit: "dB"},
	{Key: KeyGasSensor, Name: "MQ-2 Gas Sensor", Description: "Air quality - gas detection", Unit: "PPM"},
	{Key: KeyTemperature, Name: "Temperature", Description: "Ambient temperature measured by the DHT11", Unit: "°C"},
	{Key: KeyHumidity, Name: "Humidity", Description: "Relative humidity measured by the DHT11", Unit: "%"},
	{Key: KeyMotionDetector, Name: "Motion Detector", Description: "Presence detection via PIR sensor", Unit: "bool"},
	{Key: KeyUltrasonicDistance, Name: "Ultrasonic Distance - Space 1", Description: "Distance measured by the HC-SR04 for parking space 1", Unit: "cm"},
	{Key: KeyUltrasonicDistance2, Name: "Ultrasonic Distance - Space 2", Description: "Distance measured by the HC-SR04 for parking space 2", Unit: "cm"},
	{Key: KeyNfcUID, Name: "NFC Reader", Description: "UID of NFC cards read by the RC522", Unit: "string"},
	{Key: KeyServoAngle, Name: "Servo Angle", Description: "Angular position of the servo motor", Unit: "°"},
}

var feedKeySet = func() map[string]FeedDefaults {
	m := make(map[string]FeedDefaults, len(DefaultFeeds))
	for _, d := range DefaultFeeds {
		m[d.Key] = d
	}
	return m
}()

// ValidFeedKey reports whether key belongs to the closed feed-key set.
func ValidFeedKey(key string) bool {
	_, ok := feedKeySet[key]
	return ok
}

// DefaultsFor returns the default metadata for a known feed key.
func DefaultsFor(key string) (FeedDefaults, bool) {
	d, ok := feedKeySet[key]
	return d, ok
}

// FeedKeys returns the enumerated key set in bootstrap order.
func FeedKeys() []string {
	keys := make([]string, len(DefaultFeeds))
	for i, d := range DefaultFeeds {
		keys[i] = d.Key
	}
	return keys
}
