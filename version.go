package treb

// Version is the framework release version.
const Version = "0.1.0"
