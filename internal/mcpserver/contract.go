package mcpserver

// SearchGuide explains how the catalog tools interpret their arguments.
const SearchGuide = `# Connector Catalog Search Guide

The catalog lists connector packages published to the package registry under
one organization (default ` + "`ballerinax`" + `).

## Facets

Every package carries keyword tags of the form ` + "`Prefix/Value`" + `:

| Facet  | Keyword prefix | Example               |
|--------|----------------|-----------------------|
| area   | ` + "`Area/`" + `        | ` + "`Area/Finance`" + `        |
| vendor | ` + "`Vendor/`" + `      | ` + "`Vendor/Salesforce`" + `   |
| type   | ` + "`Type/`" + `        | ` + "`Type/Connector`" + `      |

A package without a tag for a facet is reported as ` + "`Other`" + `.
Call ` + "`list_filter_options`" + ` to see the values in use.

## Combining filters

- Values within one facet are alternatives (OR).
- Different facets must all match (AND).
- ` + "`query`" + ` is free text matched against names, summaries and keywords.

Selecting several values runs one registry query per combination and merges
the results, so very wide selections are slower and may be narrowed.

## Sorting

` + "`sort`" + ` takes one of: ` + "`pullCount-desc`" + ` (default), ` + "`pullCount-asc`" + `,
` + "`name-asc`" + `, ` + "`name-desc`" + `, ` + "`date-desc`" + `, ` + "`date-asc`" + `.

## Paging

` + "`offset`" + ` counts from zero; ` + "`limit`" + ` is the page size (at most 100).
The reported total counts matches before paging.

## Details

` + "`get_connector`" + ` takes the package name as shown in search results
(for example ` + "`aws.s3`" + `). Leave ` + "`version`" + ` empty for the newest release.
`
