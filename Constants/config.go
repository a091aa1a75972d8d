package Constants

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"Osprey/Models"
)

// Runtime configuration, loaded once at startup by Load.
var (
	Port string

	DBDriver string
	DBDSN    string

	JWTSecret string
	JWTExpiry time.Duration

	EmailConfig Models.EmailConfig

	// FirebaseCredentials points at a service account key file. Empty
	// disables FCM push entirely.
	FirebaseCredentials string

	// ReportCron is a cron expression for the daily summary dispatch.
	// Empty disables the scheduler.
	ReportCron string

	// OverlapSerialize guards task create/update with a process-wide lock
	// so the overlap check and insert cannot interleave. Only meaningful
	// for single-process deployments.
	OverlapSerialize bool
)

// fileOverlay mirrors the optional config.json5 file. Any field present
// overrides the corresponding environment value.
type fileOverlay struct {
	Port       *string `json:"port"`
	DBDriver   *string `json:"db_driver"`
	DBDSN      *string `json:"db_dsn"`
	ReportCron *string `json:"report_cron"`
}

func Load() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	Port = getEnv("PORT", "3000")

	DBDriver = getEnv("DB_DRIVER", "sqlite")
	DBDSN = buildDSN(DBDriver)

	JWTSecret = getEnv("JWT_SECRET", "secret")
	JWTExpiry = time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour

	EmailConfig = Models.EmailConfig{
		SMTPServer:   getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		Username:     os.Getenv("SMTP_USER"),
		Password:     os.Getenv("SMTP_PASSWORD"),
		FromEmail:    getEnv("SMTP_FROM_EMAIL", "noreply@taskmanagement.local"),
		FromName:     getEnv("SMTP_FROM_NAME", "Task Management"),
		TLSEnabled:   os.Getenv("SMTP_TLS") == "true",
		SkipTLSCheck: os.Getenv("SMTP_SKIP_VERIFY") == "true",
	}

	FirebaseCredentials = os.Getenv("FIREBASE_CREDENTIALS")
	ReportCron = os.Getenv("REPORT_CRON")
	OverlapSerialize = os.Getenv("OVERLAP_SERIALIZE") == "true"

	applyOverlay("config.json5")
}

func buildDSN(driver string) string {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn
	}
	host := getEnv("DB_HOST", "localhost")
	user := getEnv("DB_USER", "postgres")
	password := os.Getenv("DB_PASSWORD")
	name := getEnv("DB_NAME", "taskManagement")

	switch driver {
	case "mysql":
		port := getEnv("DB_PORT", "3306")
		return user + ":" + password + "@tcp(" + host + ":" + port + ")/" + name + "?parseTime=true"
	case "postgres":
		port := getEnv("DB_PORT", "5432")
		return "host=" + host + " user=" + user + " password=" + password +
			" dbname=" + name + " port=" + port + " sslmode=disable"
	default:
		return getEnv("DB_FILE", "database.db")
	}
}

func applyOverlay(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	var overlay fileOverlay
	if err := json5.NewDecoder(f).Decode(&overlay); err != nil {
		log.Printf("Error parsing %s: %v", path, err)
		return
	}
	if overlay.Port != nil {
		Port = *overlay.Port
	}
	if overlay.DBDriver != nil {
		DBDriver = *overlay.DBDriver
		DBDSN = buildDSN(DBDriver)
	}
	if overlay.DBDSN != nil {
		DBDSN = *overlay.DBDSN
	}
	if overlay.ReportCron != nil {
		ReportCron = *overlay.ReportCron
	}
	log.Printf("Applied config overrides from %s", path)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid value for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
