// Provides the platform-appropriate default cache root.
//
// Follows XDG conventions on Linux and platform-native conventions on
// macOS and Windows. "chariot" is used as the subdirectory under the base
// path.
package paths
