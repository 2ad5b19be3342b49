// Package integrationtests runs whole plans through the application, from HCL
// files to the final report.
package integrationtests
