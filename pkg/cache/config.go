package cache

import "time"

// PoolConfig sizes the Redis connection pool.
type PoolConfig struct {
	Size         int
	MinIdleConns int
	Timeout      time.Duration
}

// RedisConfig holds Redis connection settings. Every key is stored under Prefix.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Pool     PoolConfig
	Prefix   string
}

// RedisOption configures Redis cache.
type RedisOption func(*RedisConfig)

// WithRedisAddr sets the server address.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
		c.Port = port
	}
}

// WithRedisAuth selects the logical database and its password.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sets the pool; a zero Size or Timeout keeps the default.
func WithRedisPool(p PoolConfig) RedisOption {
	return func(c *RedisConfig) {
		if p.Size > 0 {
			c.Pool.Size = p.Size
		}
		if p.MinIdleConns >= 0 {
			c.Pool.MinIdleConns = p.MinIdleConns
		}
		if p.Timeout > 0 {
			c.Pool.Timeout = p.Timeout
		}
	}
}

func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryConfig holds in-process cache settings.
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

// MemoryOption configures Memory cache.
type MemoryOption func(*MemoryConfig)

// WithMemoryMaxSize caps the entry count; the least recently used entry goes first.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

// WithMemoryCleanup sets how often expired entries are swept.
func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if interval > 0 {
			c.CleanupInterval = interval
		}
	}
}

// LayeredConfig holds the L1 settings of a layered cache.
type LayeredConfig struct {
	MemoryMaxSize   int
	MemoryTTL       time.Duration
	CleanupInterval time.Duration
}

// LayeredOption configures Layered cache.
type LayeredOption func(*LayeredConfig)

// WithLayeredMemory sizes L1 and caps how long an entry stays there.
func WithLayeredMemory(size int, ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		if size > 0 {
			c.MemoryMaxSize = size
		}
		if ttl > 0 {
			c.MemoryTTL = ttl
		}
	}
}

// WithLayeredCleanup sets the L1 sweep interval.
func WithLayeredCleanup(interval time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		if interval > 0 {
			c.CleanupInterval = interval
		}
	}
}
