// Package main provides the entry point for cfgclient.
//
// cfgclient fetches remote configuration from a Spring Cloud Config
// compatible server, over plain HTTP or mutual TLS with JKS or PKCS#12
// stores:
//
//	cfgclient --config cfgclient.yaml fetch
//	cfgclient --uri https://config.internal:8888 -o yaml fetch -n billing -p prod
//	cfgclient --config cfgclient.yaml check --watch
package main
