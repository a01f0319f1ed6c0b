package telemetry

// ExecutionServiceConfig is the baseline for the execution service. Endpoint and
// environment come from the service config at startup.
var ExecutionServiceConfig = Config{
	ServiceName:    "execution-service",
	ServiceVersion: "1.0.0",
	Environment:    "local",
}

func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

func (c Config) WithEnvironment(env string) Config {
	c.Environment = env
	return c
}

func (c Config) WithSampleRatio(ratio float64) Config {
	c.SampleRatio = ratio
	return c
}
